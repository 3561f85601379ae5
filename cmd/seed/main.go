package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/finwise/ledger-api/config"
	"github.com/finwise/ledger-api/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@finwise.dev"
	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var userID string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name, provider)
		VALUES ($1, $2, $3, 'local')
		ON CONFLICT (lower(email)) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, email, hash, "Demo User").Scan(&userID)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", userID, email, password)

	accountID := uuid.NewString()
	if _, err := db.Exec(`
		INSERT INTO accounts (id, owner_id, name, currency)
		VALUES ($1, $2, 'Checking', 'USD')
	`, accountID, userID); err != nil {
		log.Fatalf("failed to seed account: %v", err)
	}

	postings := []struct {
		amount   string
		category string
		desc     string
	}{
		{"2500.00", "salary", "August payroll"},
		{"-63.20", "groceries", "Weekly shop"},
		{"-12.50", "transport", "Metro card top-up"},
	}
	total := decimal.Zero
	for _, p := range postings {
		amt, _ := decimal.NewFromString(p.amount)
		total = total.Add(amt)
		if _, err := db.Exec(`
			INSERT INTO transactions (id, account_id, owner_id, amount, category, description, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, uuid.NewString(), accountID, userID, amt, p.category, p.desc); err != nil {
			log.Fatalf("failed to seed transaction: %v", err)
		}
	}
	if _, err := db.Exec(`UPDATE accounts SET balance = $1 WHERE id = $2`, total, accountID); err != nil {
		log.Fatalf("failed to set seeded balance: %v", err)
	}
	fmt.Printf("seeded account %s with %d transactions, balance=%s USD\n", accountID, len(postings), total)
}
