package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/config"
	"github.com/velotec-gmbh/rmadesk/internal/database"
	"github.com/velotec-gmbh/rmadesk/internal/delivery"
	"github.com/velotec-gmbh/rmadesk/internal/delivery/dhl"
	"github.com/velotec-gmbh/rmadesk/internal/handlers"
	"github.com/velotec-gmbh/rmadesk/internal/models"
	"github.com/velotec-gmbh/rmadesk/internal/services/billbee"
	deliveryService "github.com/velotec-gmbh/rmadesk/internal/services/delivery"
	"github.com/velotec-gmbh/rmadesk/internal/services/rmacase"
	"github.com/velotec-gmbh/rmadesk/internal/services/zendesk"
	"github.com/velotec-gmbh/rmadesk/internal/tunnel"
	"github.com/velotec-gmbh/rmadesk/internal/vault"
	"github.com/velotec-gmbh/rmadesk/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Open the credential vault and fill in whatever the environment
	// left blank. Missing entries log a warning instead of aborting so a
	// partially configured workstation still starts.
	if cfg.Vault.Path != "" {
		v, err := vault.Open(cfg.Vault.Path, cfg.Vault.Passphrase)
		if err != nil {
			log.Fatalf("Failed to open credential vault: %v", err)
		}
		applyVaultCredentials(cfg, v)
		log.Println("🔐 Credential vault opened")
	}

	// 3. Establish the SSH tunnel when the database sits behind one
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
			log.Fatalf("Failed to establish SSH tunnel: %v", err)
		}
		log.Printf("🔌 SSH tunnel up via %s", cfg.Tunnel.Host)
	}

	// 4. Initialize database (embedded Postgres, external Postgres or
	// tunneled MySQL, detected from the configuration)
	db, err := database.Connect(cfg.Database, tun)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in the shutdown handler below

	// 5. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},

		// Case tables
		&models.RmaCase{},
		&models.Product{},
		&models.RepairDetail{},
		&models.ReturnDetail{},
		&models.TrackingEvent{},

		// Lookup tables
		&models.Handler{},
		&models.StorageLocation{},
		&models.ProblemCause{},

		// Shipping
		&models.Carrier{},
		&models.Shipment{},
		&models.ShipmentAddress{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 6. Event hub for the desktop clients
	hub := websocket.NewHub()
	go hub.Run()

	// 7. Case service on top of the GORM repository
	caseSvc := rmacase.NewService(rmacase.NewGormRepository(db), hub)

	// 8. Set up HTTP router
	router := handlers.NewRouter(db, cfg, caseSvc, hub)

	// --- DELIVERY SYSTEM INIT ---
	registry := delivery.NewRegistry()
	if cfg.DHL.ClientID != "" {
		dhlProvider, err := dhl.NewProvider(dhl.Config{
			BaseURL:       cfg.DHL.BaseURL,
			ClientID:      cfg.DHL.ClientID,
			Username:      cfg.DHL.Username,
			Password:      cfg.DHL.Password,
			BillingNumber: cfg.DHL.BillingNum,
		})
		if err != nil {
			log.Printf("⚠️ Delivery: Failed to init DHL provider: %v", err)
		} else if err := registry.Register(dhlProvider); err != nil {
			log.Printf("⚠️ Delivery: Failed to register DHL: %v", err)
		} else {
			log.Println("✅ Delivery: DHL provider registered")
		}
	}

	delSvc := deliveryService.NewService(db, registry)
	router.SetShippingService(delSvc)

	// Background worker for queued shipments
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		for range ticker.C {
			if err := delSvc.ProcessPendingShipments(context.Background()); err != nil {
				log.Printf("Delivery Worker Error: %v", err)
			}
		}
	}()
	log.Println("✅ Delivery: Background worker started")

	// Tracking refresh scheduler
	if cfg.Tracking.Enabled {
		go func() {
			ticker := time.NewTicker(cfg.Tracking.Interval)
			for range ticker.C {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := delSvc.RefreshTracking(ctx); err != nil {
					log.Printf("Tracking Refresh Error: %v", err)
				}
				cancel()
			}
		}()
		log.Printf("✅ Tracking: Refresh scheduler started (every %s)", cfg.Tracking.Interval)
	}

	// --- VENDOR CLIENTS ---
	if cfg.Billbee.APIKey != "" {
		router.SetBillbeeClient(billbee.NewClient(cfg.Billbee.BaseURL, cfg.Billbee.APIKey, cfg.Billbee.APIUser, cfg.Billbee.APIPass))
		log.Println("✅ Order system client configured")
	}
	if cfg.Zendesk.BaseURL != "" && cfg.Zendesk.APIToken != "" {
		router.SetZendeskClient(zendesk.NewClient(cfg.Zendesk.BaseURL, cfg.Zendesk.Email, cfg.Zendesk.APIToken))
		log.Println("✅ Helpdesk client configured")
	}

	// 9. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close database (this also stops embedded PostgreSQL and the tunnel)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// applyVaultCredentials fills blank configuration fields from the vault.
// Environment variables win over vault entries so individual values can
// be overridden without editing the vault.
func applyVaultCredentials(cfg *config.Config, v *vault.Vault) {
	if creds, err := v.Resolve(cfg.Tunnel.VaultEntry); err == nil {
		if cfg.Tunnel.Username == "" {
			cfg.Tunnel.Username = creds.Username
		}
		if cfg.Tunnel.Password == "" {
			cfg.Tunnel.Password = creds.Password
		}
		// The SSH key is stored as an entry attachment, not a field.
		for _, key := range creds.Attachments {
			cfg.Tunnel.PrivateKey = key
			break
		}
	} else if cfg.Tunnel.Host != "" {
		log.Printf("⚠️ Vault: %s: %v", cfg.Tunnel.VaultEntry, err)
	}

	if creds, err := v.Resolve(cfg.DHL.VaultEntry); err == nil {
		if cfg.DHL.Username == "" {
			cfg.DHL.Username = creds.Username
		}
		if cfg.DHL.Password == "" {
			cfg.DHL.Password = creds.Password
		}
	} else if cfg.DHL.ClientID != "" {
		log.Printf("⚠️ Vault: %s: %v", cfg.DHL.VaultEntry, err)
	}

	if creds, err := v.Resolve(cfg.Billbee.VaultEntry); err == nil {
		if cfg.Billbee.APIUser == "" {
			cfg.Billbee.APIUser = creds.Username
		}
		if cfg.Billbee.APIPass == "" {
			cfg.Billbee.APIPass = creds.Password
		}
	}

	if creds, err := v.Resolve(cfg.Zendesk.VaultEntry); err == nil {
		if cfg.Zendesk.Email == "" {
			cfg.Zendesk.Email = creds.Username
		}
		if cfg.Zendesk.APIToken == "" {
			cfg.Zendesk.APIToken = creds.Password
		}
	}
}
