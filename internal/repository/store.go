// Package repository implements the data access layer for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories and runs units of work against them.
type Store interface {
	Users() UserRepository
	Properties() PropertyRepository
	Sales() SaleRepository
	Activities() ActivityRepository

	// Transaction runs fn against a Store bound to one database transaction.
	// Returning an error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository { return NewUserRepository(s.db) }
func (s *gormStore) Properties() PropertyRepository { return NewPropertyRepository(s.db) }
func (s *gormStore) Sales() SaleRepository { return NewSaleRepository(s.db) }
func (s *gormStore) Activities() ActivityRepository { return NewActivityRepository(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
