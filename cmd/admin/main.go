// Package main provides account management utilities for the estate backend.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"estate/internal/auth"
	"estate/internal/config"
	"estate/internal/database"
	"estate/internal/mailer"
	"estate/internal/models"
	"estate/internal/repository"
	"estate/internal/service"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin/main.go activate <user_id>     - Activate an account")
		fmt.Println("  go run ./cmd/admin/main.go deactivate <user_id>   - Deactivate an account")
		fmt.Println("  go run ./cmd/admin/main.go list-inactive          - List inactive accounts")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	mail := mailer.NewAsync(&mailer.LogSender{}, 0)
	users := service.NewUserService(repository.NewStore(db), auth.NewBcryptHasher(),
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL()), mail, service.UserOptions{FrontendURL: cfg.FrontendURL})

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "activate", "deactivate":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin/main.go %s <user_id>\n", command)
			os.Exit(1)
		}
		id, err := uuid.Parse(os.Args[2])
		if err != nil {
			fmt.Printf("Invalid user ID %q\n", os.Args[2])
			os.Exit(1)
		}
		setStatus(ctx, users, command, id)

	case "list-inactive":
		listInactive(db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
	mail.Wait()
}

func setStatus(ctx context.Context, users *service.UserService, command string, id uuid.UUID) {
	var (
		res models.Result[*models.User]
		err error
	)
	if command == "activate" {
		res, err = users.Activate(ctx, id)
	} else {
		// The CLI acts as nobody, so self-deactivation never applies.
		res, err = users.Deactivate(ctx, id, uuid.Nil)
	}
	if err != nil {
		fmt.Printf("❌ %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("✅ %s (ID: %s) is now %s\n", res.Entity.UsernameValue(), res.Entity.ID, res.Entity.Status)
}

func listInactive(db *gorm.DB) {
	var users []models.User
	if err := db.Where("status = ?", models.UserStatusInactive).Order("created_at").Find(&users).Error; err != nil {
		log.Fatalf("Failed to fetch accounts: %v", err)
	}

	if len(users) == 0 {
		fmt.Println("No inactive accounts")
		return
	}

	fmt.Println("\n📋 Inactive accounts:")
	fmt.Println("─────────────────────────────────────")
	for _, u := range users {
		fmt.Printf("ID: %s | Username: %s | Email: %s\n", u.ID, u.UsernameValue(), u.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
