package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"helios-backend/config"
	"helios-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "test@example.com", "user email")
	password := flag.String("password", "testpassword123", "user password")
	name := flag.String("name", "Test User", "display name")
	plan := flag.String("plan", string(models.PlanPro), "plan tier: free, pro or team")
	locale := flag.String("locale", "en", "preferred locale for suggested tasks")
	flag.Parse()

	switch models.PlanTier(*plan) {
	case models.PlanFree, models.PlanPro, models.PlanTeam:
	default:
		log.Fatalf("Unknown plan %q", *plan)
	}

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

	// Check if user already exists
	var existingID uuid.UUID
	err = pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", *email).Scan(&existingID)
	if err == nil {
		log.Printf("User with email %s already exists (ID: %s)", *email, existingID)
		return
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	// Insert user
	var userID uuid.UUID
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, plan, locale)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, *email, string(hashedPassword), *name, *plan, *locale).Scan(&userID)

	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("✅ Test user created successfully!\n")
	fmt.Printf("   ID: %s\n", userID)
	fmt.Printf("   Email: %s\n", *email)
	fmt.Printf("   Password: %s\n", *password)
	fmt.Printf("   Plan: %s\n", *plan)
	fmt.Printf("   Locale: %s\n", *locale)
}
