package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"estate/internal/auth"
	"estate/internal/config"
	"estate/internal/database"
	"estate/internal/mailer"
	"estate/internal/models"
	"estate/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Sup3r-Secret!pass"

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) SendAsync(msg mailer.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
}

func (o *outbox) messages() []mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mailer.Message(nil), o.sent...)
}

type harness struct {
	db         *gorm.DB
	store      repository.Store
	tokens     *auth.TokenIssuer
	hasher     *auth.BcryptHasher
	mail       *outbox
	users      *UserService
	properties *PropertyService
	sales      *SaleService
	activities *ActivityService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     database.DriverSQLite,
		DBSQLitePath: filepath.Join(t.TempDir(), "service.db"),
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() { _ = database.Close(db) })

	h := &harness{
		db:     db,
		store:  repository.NewStore(db),
		tokens: auth.NewTokenIssuer("service-test-secret", time.Hour),
		hasher: &auth.BcryptHasher{Cost: bcrypt.MinCost},
		mail:   &outbox{},
	}
	h.users = NewUserService(h.store, h.hasher, h.tokens, h.mail, UserOptions{
		ResetTokenTTL: 15 * time.Minute,
		FrontendURL:   "https://estate.example/",
	})
	h.properties = NewPropertyService(h.store)
	h.sales = NewSaleService(h.store, SaleOptions{})
	h.activities = NewActivityService(h.store, ActivityOptions{})
	return h
}

// signup registers a random user; activated users are flipped right away.
func (h *harness) signup(t *testing.T, username string, activated bool) *models.User {
	t.Helper()
	ctx := context.Background()
	res, err := h.users.Create(ctx, CreateUserInput{
		Username:  username,
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     gofakeit.Username() + "." + gofakeit.UUID() + "@example.com",
		Password:  testPassword,
	})
	require.NoError(t, err)
	if activated {
		act, err := h.users.Activate(ctx, res.Entity.ID)
		require.NoError(t, err)
		return act.Entity
	}
	return res.Entity
}

func (h *harness) listing(t *testing.T, owner *models.User) *models.Property {
	t.Helper()
	in := CreatePropertyInput{
		Address:    gofakeit.Street(),
		Price:      gofakeit.Float64Range(50000, 900000),
		LivingArea: gofakeit.Float64Range(30, 300),
	}
	if owner != nil {
		in.OwnerID = &owner.ID
	}
	res, err := h.properties.Create(context.Background(), in)
	require.NoError(t, err)
	return res.Entity
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func (h *harness) propertyStatus(t *testing.T, id any) models.PropertyStatus {
	t.Helper()
	var p models.Property
	require.NoError(t, h.db.First(&p, "id = ?", id).Error)
	return p.Status
}

// assertDomainError checks err against a sentinel and the Status carried by
// the result.
func assertDomainError(t *testing.T, want *models.AppError, status models.Status, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, want), "want %s, got %v", want.Code, err)
	assert.Equal(t, want.StatusCode, status.Code)
	assert.Equal(t, want.Message, status.Message)
}
