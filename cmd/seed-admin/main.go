package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/internal/repository"
	"github.com/noah-isme/college-portal-api/internal/service"
	"github.com/noah-isme/college-portal-api/pkg/config"
	"github.com/noah-isme/college-portal-api/pkg/database"
)

// seed-admin creates an administrator account. The password may be given
// through ADMIN_PASSWORD to keep it out of shell history.
func main() {
	var (
		email    string
		name     string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "Administrator email")
	flag.StringVar(&name, "name", "Administrator", "Administrator full name")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "Administrator password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Database timeout")
	flag.Parse()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		log.Fatal("email and password are required")
	}
	if len(password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	hash, err := service.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	users := repository.NewUserRepository(db)
	if existing, err := users.FindByEmail(ctx, email); err == nil && existing != nil {
		log.Fatalf("an account with email %s already exists", email)
	}

	admin := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(name),
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, admin); err != nil {
		if database.IsUniqueViolation(err, "") {
			log.Fatalf("an account with email %s already exists", email)
		}
		log.Fatalf("failed to create admin: %v", err)
	}
	log.Printf("created admin %s (%s)", admin.Email, admin.ID)
}
