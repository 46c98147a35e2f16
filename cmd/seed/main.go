// seed inserts demo accounts and warranties into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/auth"
	"github.com/ErlanBelekov/warranty-register/internal/infrastructure/postgres"
)

const seedPassword = "password123"

type accountSpec struct {
	email    string
	fullName string
	admin    bool
}

var accounts = []accountSpec{
	{"admin@seed.local", "Seed Admin", true},
	{"alice@seed.local", "Alice Operator", false},
	{"bob@seed.local", "Bob Operator", false},
}

type warrantySpec struct {
	assetID    string
	name       string
	category   string
	department string
	cost       float64
	status     string
	// endIn is added to now; negative values seed warranties the expirer will pick up.
	endIn time.Duration
	owner string
}

var warranties = []warrantySpec{
	{"SEED-LAPTOP-001", "ThinkPad X1 Carbon", "laptop", "engineering", 1899.00, "registered", 365 * 24 * time.Hour, "alice@seed.local"},
	{"SEED-LAPTOP-002", "MacBook Pro 14", "laptop", "design", 2399.00, "active", 300 * 24 * time.Hour, "alice@seed.local"},
	{"SEED-MON-001", "Dell U2723QE", "monitor", "engineering", 579.99, "active", 200 * 24 * time.Hour, "bob@seed.local"},
	{"SEED-PHONE-001", "Pixel 8", "phone", "sales", 699.00, "claimed", 90 * 24 * time.Hour, "bob@seed.local"},
	{"SEED-PRN-001", "LaserJet M404", "printer", "operations", 349.00, "expired", -30 * 24 * time.Hour, "admin@seed.local"},

	// Past their end date but still open, the expirer should flip these.
	{"SEED-DOCK-001", "Thunderbolt Dock", "accessory", "engineering", 249.00, "registered", -24 * time.Hour, "alice@seed.local"},
	{"SEED-DOCK-002", "USB-C Dock", "accessory", "design", 179.00, "active", -2 * time.Hour, "bob@seed.local"},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		log.Fatalf("migrate: %v", err)
	}

	hash, err := auth.NewCredentials("", 10).Hash(seedPassword)
	if err != nil {
		pool.Close()
		log.Fatalf("hash password: %v", err)
	}

	// Upsert accounts
	ids := make(map[string]string, len(accounts))
	for _, a := range accounts {
		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO users (email, hashed_password, full_name, is_admin)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
			RETURNING id`,
			a.email, hash, a.fullName, a.admin,
		).Scan(&id)
		if err != nil {
			pool.Close()
			log.Fatalf("upsert user %s: %v", a.email, err)
		}
		ids[a.email] = id
	}

	// Insert warranties, skip any asset already registered (idempotent re-runs)
	now := time.Now().UTC()
	var inserted, skipped int
	for _, w := range warranties {
		tag, err := pool.Exec(ctx, `
			INSERT INTO warranties (
				asset_id, asset_name, category, department, cost,
				warranty_status, warranty_start_date, warranty_end_date,
				registered_by, registered_by_email
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (asset_id) DO NOTHING`,
			w.assetID, w.name, w.category, w.department, w.cost,
			w.status, now.Add(w.endIn).AddDate(-1, 0, 0), now.Add(w.endIn),
			ids[w.owner], w.owner,
		)
		if err != nil {
			pool.Close()
			log.Fatalf("insert warranty %s: %v", w.assetID, err)
		}
		if tag.RowsAffected() == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Accounts:   %d  (password %q)\n", len(accounts), seedPassword)
	for _, a := range accounts {
		role := "user"
		if a.admin {
			role = "admin"
		}
		fmt.Printf("    %-20s %s\n", a.email, role)
	}
	fmt.Printf("  Warranties: %d created  (skipped %d already existing)\n", inserted, skipped)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1: get a token:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/api/v1/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", accounts[1].email, seedPassword)
	fmt.Println()
	fmt.Println("  Step 2: list warranties:")
	fmt.Println()
	fmt.Println("    export TOKEN=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/api/v1/warranties -H \"Authorization: Bearer $TOKEN\"")
	fmt.Println()
	fmt.Println("  Step 3: check an asset with the service key:")
	fmt.Println()
	fmt.Println("    curl -s http://localhost:8080/api/v1/warranties/check/SEED-LAPTOP-001 -H \"X-API-Key: $API_KEY\"")
	fmt.Println()
	fmt.Println("  Or sign in to the dashboard at http://localhost:8080/web/login")
	fmt.Println()
	fmt.Println("  SEED-DOCK-001 and SEED-DOCK-002 are past their end date; run ./cmd/expirer to expire them.")
}
