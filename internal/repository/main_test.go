package repository

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"estate/internal/config"
	"estate/internal/database"
	"estate/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB returns a postgres-dialect gorm DB backed by sqlmock, for
// asserting the SQL a repository emits.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupTestDB opens a fresh sqlite database with the full schema applied.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     database.DriverSQLite,
		DBSQLitePath: filepath.Join(t.TempDir(), "repository.db"),
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func quote(sql string) string {
	return regexp.QuoteMeta(sql)
}

type userFixture struct {
	username string
	first    string
	last     string
	email    string
	status   models.UserStatus
	created  time.Time
}

func createUser(t *testing.T, db *gorm.DB, f userFixture) *models.User {
	t.Helper()
	if f.email == "" {
		f.email = uuid.NewString() + "@example.com"
	}
	if f.status == "" {
		f.status = models.UserStatusActive
	}
	user := &models.User{
		FirstName: f.first,
		LastName:  f.last,
		Email:     f.email,
		Password:  "hash",
		Status:    f.status,
		CreatedAt: f.created,
	}
	if f.username != "" {
		user.Username = &f.username
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createProperty(t *testing.T, db *gorm.DB, owner *models.User, address string, price, area float64) *models.Property {
	t.Helper()
	property := &models.Property{Address: address, Price: price, LivingArea: area}
	if owner != nil {
		property.OwnerID = &owner.ID
	}
	require.NoError(t, NewPropertyRepository(db).Create(context.Background(), property))
	return property
}
