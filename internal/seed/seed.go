package seed

import (
	"context"
	"fmt"
	"log"

	"estate/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder. Zero counts select the defaults.
type Options struct {
	Users      int
	Properties int
	Sales      int
	// FastHash hashes the shared password with the minimum bcrypt cost.
	FastHash  bool
	BatchSize int
}

func (o *Options) normalize() {
	if o.Users <= 0 {
		o.Users = 20
	}
	if o.Properties <= 0 {
		o.Properties = 40
	}
	if o.Sales < 0 {
		o.Sales = 0
	}
	if o.Sales == 0 {
		o.Sales = o.Properties / 4
	}
	if o.Sales > o.Properties {
		o.Sales = o.Properties
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
}

// Summary counts what a seeding run created.
type Summary struct {
	Users      int
	Properties int
	Sales      int
}

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts.normalize()
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts.FastHash)}
}

// Factory exposes the entity factory used by the seeder.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// SeedIfEmpty seeds only when no user exists yet and reports whether it did.
func (s *Seeder) SeedIfEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.Seed(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Seed creates users, listings spread over them and sales between distinct
// owners and buyers. Everything is written in one transaction.
func (s *Seeder) Seed(ctx context.Context) (*Summary, error) {
	log.Printf("🌱 Seeding %d users, %d properties, %d sales...", s.opts.Users, s.opts.Properties, s.opts.Sales)

	var summary Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make([]*models.User, 0, s.opts.Users)
		for i := 0; i < s.opts.Users; i++ {
			u, err := s.factory.BuildUser()
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		if err := tx.CreateInBatches(users, s.opts.BatchSize).Error; err != nil {
			return fmt.Errorf("create users: %w", err)
		}
		summary.Users = len(users)

		properties := make([]*models.Property, 0, s.opts.Properties)
		for i := 0; i < s.opts.Properties; i++ {
			properties = append(properties, s.factory.BuildProperty(users[i%len(users)]))
		}

		sales := make([]*models.Sale, 0, s.opts.Sales)
		for i := 0; i < s.opts.Sales && len(users) > 1; i++ {
			buyer := users[(i+1)%len(users)]
			properties[i].Status = models.PropertyStatusSold
			sales = append(sales, &models.Sale{BuyerID: buyer.ID})
		}

		if err := tx.CreateInBatches(properties, s.opts.BatchSize).Error; err != nil {
			return fmt.Errorf("create properties: %w", err)
		}
		summary.Properties = len(properties)

		for i, sale := range sales {
			sale.PropertyID = properties[i].ID
		}
		if len(sales) > 0 {
			if err := tx.Omit("Buyer", "Property").CreateInBatches(sales, s.opts.BatchSize).Error; err != nil {
				return fmt.Errorf("create sales: %w", err)
			}
		}
		summary.Sales = len(sales)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✓ seeded %d users, %d properties, %d sales", summary.Users, summary.Properties, summary.Sales)
	return &summary, nil
}

// ClearAll removes every seeded row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Sale{}, &models.Activity{}, &models.Property{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
