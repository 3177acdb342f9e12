package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"helios-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	reset := flag.Bool("reset", false, "drop existing tables first (development only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	if *reset {
		for _, table := range []string{"files", "contracts", "users"} {
			if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
				log.Fatalf("Failed to drop table %s: %v", table, err)
			}
			log.Printf("✓ Dropped existing %s table (if any)", table)
		}
	}

	tables := []struct {
		name string
		sql  string
	}{
		{
			name: "users",
			sql: `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    name VARCHAR(255),
    plan VARCHAR(20) NOT NULL DEFAULT 'free' CHECK (plan IN ('free', 'pro', 'team')),
    locale VARCHAR(10) NOT NULL DEFAULT 'en',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);`,
		},
		{
			name: "contracts",
			sql: `
CREATE TABLE IF NOT EXISTS contracts (
    id UUID PRIMARY KEY,
    user_id UUID REFERENCES users(id) ON DELETE SET NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'analyzed' CHECK (status IN ('analyzed', 'reviewed', 'archived')),
    file_name TEXT NOT NULL,
    sector VARCHAR(100),
    page_count INTEGER NOT NULL DEFAULT 0,

    -- which model actually answered
    provider VARCHAR(50),
    model_used VARCHAR(100),

    analysis JSONB NOT NULL DEFAULT '{}'::jsonb,
    attempts JSONB NOT NULL DEFAULT '[]'::jsonb,

    -- denormalized from analysis for filtering
    risk_score INTEGER CHECK (risk_score BETWEEN 1 AND 10),
    renewal_date DATE,

    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);`,
		},
		{
			name: "files",
			sql: `
CREATE TABLE IF NOT EXISTS files (
    id UUID PRIMARY KEY,
    contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
    user_id UUID REFERENCES users(id) ON DELETE SET NULL,
    filename TEXT NOT NULL,
    mime_type VARCHAR(100) NOT NULL,
    format VARCHAR(20) NOT NULL,
    size BIGINT NOT NULL,
    storage_path TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);`,
		},
	}

	for _, table := range tables {
		if _, err := pool.Exec(ctx, table.sql); err != nil {
			log.Fatalf("Failed to create %s table: %v", table.name, err)
		}
		log.Printf("✓ Created %s table", table.name)
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Contracts by user",
			sql:  "CREATE INDEX IF NOT EXISTS idx_contracts_user_id ON contracts(user_id, created_at DESC);",
		},
		{
			name: "Upcoming renewals",
			sql:  "CREATE INDEX IF NOT EXISTS idx_contracts_renewal_date ON contracts(renewal_date) WHERE status <> 'archived';",
		},
		{
			name: "High-risk contracts",
			sql:  "CREATE INDEX IF NOT EXISTS idx_contracts_risk_score ON contracts(risk_score) WHERE risk_score >= 7;",
		},
		{
			name: "Analysis JSONB filtering",
			sql:  "CREATE INDEX IF NOT EXISTS idx_contracts_analysis_gin ON contracts USING gin (analysis);",
		},
		{
			name: "Files by contract",
			sql:  "CREATE INDEX IF NOT EXISTS idx_files_contract_id ON files(contract_id);",
		},
	}

	for _, idx := range indexes {
		_, err = pool.Exec(ctx, idx.sql)
		if err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
		} else {
			log.Printf("✓ Created index: %s", idx.name)
		}
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Println("   Tables: users, contracts, files")
	fmt.Printf("   Indexes: %d indexes created\n", len(indexes))
}
