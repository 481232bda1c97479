package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/config"
	"github.com/velotec-gmbh/rmadesk/internal/database"
	"github.com/velotec-gmbh/rmadesk/internal/models"
	"github.com/velotec-gmbh/rmadesk/internal/services/importer"
	"github.com/velotec-gmbh/rmadesk/internal/tunnel"
	"github.com/velotec-gmbh/rmadesk/internal/vault"
)

func main() {
	csvPath := flag.String("file", "", "path to the legacy CSV export")
	flag.Parse()
	if *csvPath == "" {
		log.Fatal("Usage: import_csv -file <path-to-csv>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Tunnel credentials come from the vault on import workstations
	if cfg.Vault.Path != "" {
		v, err := vault.Open(cfg.Vault.Path, cfg.Vault.Passphrase)
		if err != nil {
			log.Fatalf("❌ Failed to open credential vault: %v", err)
		}
		if creds, err := v.Resolve(cfg.Tunnel.VaultEntry); err == nil {
			if cfg.Tunnel.Username == "" {
				cfg.Tunnel.Username = creds.Username
			}
			if cfg.Tunnel.Password == "" {
				cfg.Tunnel.Password = creds.Password
			}
			for _, key := range creds.Attachments {
				cfg.Tunnel.PrivateKey = key
				break
			}
		}
	}

	var tun *tunnel.Tunnel
	if cfg.Tunnel.Host != "" {
		tun, err = tunnel.Dial(tunnel.Config{
			Host:       cfg.Tunnel.Host,
			Port:       cfg.Tunnel.Port,
			Username:   cfg.Tunnel.Username,
			Password:   cfg.Tunnel.Password,
			PrivateKey: cfg.Tunnel.PrivateKey,
			Timeout:    10 * time.Second,
		})
		if err != nil {
			log.Fatalf("❌ Failed to establish SSH tunnel: %v", err)
		}
	}

	db, err := database.Connect(cfg.Database, tun)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	err = db.AutoMigrate(
		&models.RmaCase{},
		&models.Product{},
		&models.RepairDetail{},
		&models.ReturnDetail{},
		&models.TrackingEvent{},
		&models.Handler{},
		&models.StorageLocation{},
		&models.ProblemCause{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	fmt.Printf("📄 Importing %s...\n", *csvPath)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	summary, err := importer.NewService(db).ImportFile(ctx, *csvPath)
	if err != nil {
		log.Fatalf("❌ Import failed: %v", err)
	}

	fmt.Println("✅ Import complete")
	fmt.Printf("   • %d created\n", summary.Created)
	fmt.Printf("   • %d updated\n", summary.Updated)
	fmt.Printf("   • %d skipped\n", summary.Skipped)
	if len(summary.Warnings) > 0 {
		fmt.Printf("   • %d warnings (see log output above)\n", len(summary.Warnings))
	}
}
