// seed inserts development sample accounts for local testing.
// Idempotent: skips inserts if the dev account (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	accdomain "gigachat/backend/internal/account/domain"
	accountrepo "gigachat/backend/internal/account/repository"
	"gigachat/backend/internal/config"
	"gigachat/backend/internal/db"
	"gigachat/backend/internal/security"
)

// Dev credentials; never use outside local development.
const (
	devEmail    = "dev@example.com"
	devUsername = "dev"
	devPassword = "Dev-password-123!"

	adminEmail    = "admin@example.com"
	adminUsername = "admin"
	adminPassword = "Admin-password-123!"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Env == "production" {
		log.Fatal("seed: refusing to run in production")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	repo := accountrepo.NewPostgresRepository(sqlDB)
	hasher := security.NewHasher(cfg.PasswordPepper, cfg.BcryptCost)

	existing, err := repo.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", devEmail)
		return
	}

	seedAccount(ctx, repo, hasher, devEmail, devUsername, devPassword, accdomain.RoleUser)
	seedAccount(ctx, repo, hasher, adminEmail, adminUsername, adminPassword, accdomain.RoleAdmin)
	log.Println("seed: done")
}

func seedAccount(ctx context.Context, repo *accountrepo.PostgresRepository, hasher *security.Hasher, email, username, password string, role accdomain.Role) {
	hash, err := hasher.Hash(password)
	if err != nil {
		log.Fatalf("seed: hash %s: %v", email, err)
	}
	now := time.Now().UTC()
	a := &accdomain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, a); err != nil {
		log.Fatalf("seed: create %s: %v", email, err)
	}
	log.Printf("seed: created %s (%s)", email, role)
}
