// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"estate/internal/auth"
	"estate/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Password123!"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	hasher auth.Hasher
	rnd    *rand.Rand
	// hash is computed once; every seeded account shares the password.
	hash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB. fastHash
// selects the cheapest bcrypt cost.
func NewFactory(db *gorm.DB, fastHash bool) *Factory {
	hasher := auth.NewBcryptHasher()
	if fastHash {
		hasher = &auth.BcryptHasher{Cost: bcrypt.MinCost}
	}
	return &Factory{
		db:     db,
		hasher: hasher,
		// #nosec G404: acceptable for seeding
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *Factory) password() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	h, err := f.hasher.Hash(DefaultPassword)
	if err != nil {
		return "", err
	}
	f.hash = h
	return h, nil
}

// BuildUser returns an unsaved active user with fake personal data.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.password()
	if err != nil {
		return nil, err
	}

	first, last := gofakeit.FirstName(), gofakeit.LastName()
	username := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, gofakeit.Number(100, 9999)))
	user := &models.User{
		Username:  &username,
		FirstName: first,
		LastName:  last,
		Email:     fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
		Password:  hash,
		Status:    models.UserStatusActive,
		CreatedAt: f.pastTime(365),
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// BuildProperty returns an unsaved available listing for owner.
func (f *Factory) BuildProperty(owner *models.User, overrides ...func(*models.Property)) *models.Property {
	area := float64(gofakeit.Number(30, 320))
	property := &models.Property{
		Address:    fmt.Sprintf("%s, %s", gofakeit.Street(), gofakeit.City()),
		LivingArea: area,
		Price:      area * float64(gofakeit.Number(1500, 9000)),
		Status:     models.PropertyStatusAvailable,
		CreatedAt:  f.pastTime(180),
	}
	if owner != nil {
		property.OwnerID = &owner.ID
	}
	for _, override := range overrides {
		override(property)
	}
	return property
}

// CreateUser builds and persists one user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateProperty builds and persists one listing.
func (f *Factory) CreateProperty(owner *models.User, overrides ...func(*models.Property)) (*models.Property, error) {
	property := f.BuildProperty(owner, overrides...)
	if err := f.db.Create(property).Error; err != nil {
		return nil, err
	}
	return property, nil
}

// pastTime returns a realistic timestamp within the last maxDays days.
func (f *Factory) pastTime(maxDays int) time.Time {
	back := time.Duration(f.rnd.Intn(maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}
