package main

import (
	"fmt"
	"log"
	"time"

	"github.com/velotec-gmbh/rmadesk/internal/config"
	"github.com/velotec-gmbh/rmadesk/internal/database"
	"github.com/velotec-gmbh/rmadesk/internal/models"
)

func main() {
	fmt.Println("🌱 RMA Desk Demo Data Seeder")
	fmt.Println("=" + string(make([]rune, 60)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database, nil)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")
	fmt.Println()

	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.RmaCase{},
		&models.Product{},
		&models.RepairDetail{},
		&models.ReturnDetail{},
		&models.TrackingEvent{},
		&models.Handler{},
		&models.StorageLocation{},
		&models.ProblemCause{},
		&models.Carrier{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	var caseCount int64
	db.Model(&models.RmaCase{}).Count(&caseCount)
	if caseCount > 0 {
		fmt.Printf("⚠️  Database already has %d cases. Seeding anyway would duplicate reference data. Continue? (y/N): ", caseCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
	}

	fmt.Println("📦 Creating demo data...")
	fmt.Println()

	// 1. Handlers
	fmt.Println("👤 Creating handlers...")
	handlers := []models.Handler{
		{Initials: "MM", Name: "Max Mustermann", Active: true},
		{Initials: "AB", Name: "Anna Beispiel", Active: true},
		{Initials: "JT", Name: "Jonas Tester", Active: true},
	}
	for _, h := range handlers {
		if err := db.Create(&h).Error; err != nil {
			log.Printf("⚠️  Failed to create handler %s: %v", h.Initials, err)
		} else {
			fmt.Printf("   ✓ Created handler: %s (%s)\n", h.Initials, h.Name)
		}
	}
	fmt.Printf("✅ Created %d handlers\n\n", len(handlers))

	// 2. Storage locations
	fmt.Println("📍 Creating storage locations...")
	locations := []models.StorageLocation{
		{LocationName: "Regal A1"},
		{LocationName: "Regal A2"},
		{LocationName: "Regal B1"},
		{LocationName: "Werkstatt"},
		{LocationName: "Versandbereich"},
	}
	for i := range locations {
		if err := db.Create(&locations[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create storage location %s: %v", locations[i].LocationName, err)
		} else {
			fmt.Printf("   ✓ Created storage location: %s\n", locations[i].LocationName)
		}
	}
	fmt.Printf("✅ Created %d storage locations\n\n", len(locations))

	// 3. Problem causes
	fmt.Println("🔎 Creating problem causes...")
	causes := []models.ProblemCause{
		{Name: "Akku defekt"},
		{Name: "Display gebrochen"},
		{Name: "Wasserschaden"},
		{Name: "Lädt nicht"},
		{Name: "Kein Fehler feststellbar"},
	}
	for _, c := range causes {
		if err := db.Create(&c).Error; err != nil {
			log.Printf("⚠️  Failed to create problem cause %s: %v", c.Name, err)
		} else {
			fmt.Printf("   ✓ Created problem cause: %s\n", c.Name)
		}
	}
	fmt.Printf("✅ Created %d problem causes\n\n", len(causes))

	// 4. Carriers
	fmt.Println("🚚 Creating carriers...")
	carriers := []models.Carrier{
		{Name: "DHL Paket", ProviderCode: "dhl", Active: true},
	}
	for _, c := range carriers {
		if err := db.Create(&c).Error; err != nil {
			log.Printf("⚠️  Failed to create carrier %s: %v", c.Name, err)
		} else {
			fmt.Printf("   ✓ Created carrier: %s [%s]\n", c.Name, c.ProviderCode)
		}
	}
	fmt.Printf("✅ Created %d carriers\n\n", len(carriers))

	// 5. Demo cases
	fmt.Println("📋 Creating demo cases...")
	now := time.Now()
	exitDate := now.Add(-48 * time.Hour)
	archivedAt := now.Add(-24 * time.Hour)
	cases := []models.RmaCase{
		{
			TicketNumber: "RMA-2024-0001",
			OrderNumber:  "305-1234567-1234567",
			CaseType:     models.CaseTypeRepair,
			EntryDate:    now.Add(-7 * 24 * time.Hour),
			Status:       models.CaseStatusInProgress,
			IsAmazon:     true,
			Products: []models.Product{
				{Name: "Akku-Ladegerät V2", SerialNumber: "VLT-2024-0815", Quantity: 1},
			},
			RepairDetail: &models.RepairDetail{
				CustomerDescription: "Gerät lädt nicht mehr, LED blinkt rot",
			},
		},
		{
			TicketNumber: "RMA-2024-0002",
			OrderNumber:  "B2C-55012",
			CaseType:     models.CaseTypeWithdrawal,
			EntryDate:    now.Add(-14 * 24 * time.Hour),
			Status:       models.CaseStatusCompleted,
			ExitDate:     &exitDate,
			Products: []models.Product{
				{Name: "Fahrradcomputer Pro", SerialNumber: "VLT-2023-1188", Quantity: 1},
			},
			ReturnDetail: &models.ReturnDetail{
				Reason: "Widerruf innerhalb der Frist",
			},
		},
		{
			TicketNumber: "RMA-2024-0003",
			OrderNumber:  "B2C-55890",
			CaseType:     models.CaseTypeRepair,
			EntryDate:    now.Add(-30 * 24 * time.Hour),
			Status:       models.CaseStatusCompleted,
			ExitDate:     &exitDate,
			ArchivedAt:   &archivedAt,
			Products: []models.Product{
				{Name: "Lenkerhalterung", SerialNumber: "", Quantity: 2},
			},
			RepairDetail: &models.RepairDetail{
				CustomerDescription: "Halterung gebrochen, Ersatz gewünscht",
			},
		},
	}
	for i := range cases {
		if err := db.Create(&cases[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create case %s: %v", cases[i].TicketNumber, err)
		} else {
			fmt.Printf("   ✓ Created case: %s [%s]\n", cases[i].TicketNumber, cases[i].Status)
		}
	}
	fmt.Printf("✅ Created %d cases\n\n", len(cases))

	fmt.Println("=" + string(make([]rune, 60)))
	fmt.Println("🎉 Demo data created successfully!")
	fmt.Println()
	fmt.Println("📊 Summary:")
	fmt.Printf("   • %d handlers\n", len(handlers))
	fmt.Printf("   • %d storage locations\n", len(locations))
	fmt.Printf("   • %d problem causes\n", len(causes))
	fmt.Printf("   • %d carriers\n", len(carriers))
	fmt.Printf("   • %d cases (1 archived)\n", len(cases))
	fmt.Println()
	fmt.Println("🌐 Start the server:")
	fmt.Println("   go run ./cmd/api/main.go")
	fmt.Println("   Then visit: http://localhost:3210/health")
	fmt.Println("=" + string(make([]rune, 60)))
}
