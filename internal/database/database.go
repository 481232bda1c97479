package database

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
	"github.com/velotec-gmbh/rmadesk/internal/config"
	"github.com/velotec-gmbh/rmadesk/internal/tunnel"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
	tunnelNetwork    = "mysql+tunnel"
)

// DB wraps gorm.DB and owns the embedded process or tunnel when one is active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
	tunnel   *tunnel.Tunnel
}

// Connect establishes the database connection. Three modes:
//   - tunneled MySQL when tun is non-nil (production: remote DB behind SSH)
//   - embedded PostgreSQL when host is localhost with no password
//   - external PostgreSQL otherwise
func Connect(cfg config.DatabaseConfig, tun *tunnel.Tunnel) (*DB, error) {
	if tun != nil || cfg.Driver == "mysql" {
		return connectMySQL(cfg, tun)
	}
	return connectPostgres(cfg)
}

func connectMySQL(cfg config.DatabaseConfig, tun *tunnel.Tunnel) (*DB, error) {
	network := "tcp"
	if tun != nil {
		log.Println("Mode: [Tunneled MySQL] - Forwarding through SSH")
		network = tunnelNetwork
		gomysql.RegisterDialContext(tunnelNetwork, func(ctx context.Context, addr string) (net.Conn, error) {
			return tun.DialContext(ctx, addr)
		})
	} else {
		log.Printf("Mode: [External MySQL] - Connecting to %s:%s\n", cfg.Host, cfg.Port)
	}

	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	dsn := fmt.Sprintf(
		"%s:%s@%s(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, network, net.JoinHostPort(cfg.Host, port), cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %v: %w", err, apperr.ErrConnection)
	}

	tunePool(db)
	log.Println("Database connection established")
	return &DB{DB: db, tunnel: tun}, nil
}

func connectPostgres(cfg config.DatabaseConfig) (*DB, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres

	// Embedded mode: localhost and no password means we run our own server.
	isEmbedded := cfg.Host == "localhost" && cfg.Password == ""

	password := cfg.Password
	if isEmbedded {
		log.Println("Mode: [Embedded PostgreSQL] - Initializing internal database...")

		if isPortInUse(embeddedPort) {
			return nil, fmt.Errorf("port %d is already in use: %w", embeddedPort, apperr.ErrConnection)
		}

		embeddedCfg := embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password("postgres")

		embedded = embeddedpostgres.NewDatabase(embeddedCfg)
		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("start embedded database: %v: %w", err, apperr.ErrConnection)
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		password = "postgres"
		log.Printf("Embedded PostgreSQL process started on port %d", embeddedPort)
	} else {
		log.Printf("Mode: [External PostgreSQL] - Connecting to %s:%s\n", cfg.Host, cfg.Port)
		if cfg.Port == "" {
			cfg.Port = "5432"
		}
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, password, cfg.Database,
	)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("connect to postgres: %v: %w", err, apperr.ErrConnection)
	}

	tunePool(db)
	log.Println("Database connection established")
	return &DB{DB: db, embedded: embedded}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func tunePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
}

// isPortInUse checks if a port is already in use
func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Close shuts down the connection, the embedded process and the tunnel in
// dependency order.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err == nil {
		_ = sqlDB.Close()
	}

	if db.embedded != nil {
		log.Println("Stopping Embedded PostgreSQL process...")
		_ = db.embedded.Stop()
	}
	if db.tunnel != nil {
		log.Println("Closing SSH tunnel...")
		return db.tunnel.Close()
	}
	return err
}

// AutoMigrate triggers GORM schema synchronization
func (db *DB) AutoMigrate(models ...interface{}) error {
	return db.DB.AutoMigrate(models...)
}
