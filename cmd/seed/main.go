// Command main runs the database seeder for the estate backend.
package main

import (
	"context"
	"flag"
	"log"

	"estate/internal/config"
	"estate/internal/database"
	"estate/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numProperties := flag.Int("properties", 120, "Number of properties to create")
	numSales := flag.Int("sales", 30, "Number of properties to mark sold")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash the shared password with the minimum bcrypt cost")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d properties, %d sales, clean=%v\n", *numUsers, *numProperties, *numSales, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		Users:      *numUsers,
		Properties: *numProperties,
		Sales:      *numSales,
		FastHash:   *fast,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Seed(ctx); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
