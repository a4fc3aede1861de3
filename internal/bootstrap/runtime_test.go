package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"estate/internal/auth"
	"estate/internal/config"
	"estate/internal/database"
	"estate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     database.DriverSQLite,
		DBSQLitePath: filepath.Join(t.TempDir(), "bootstrap.db"),
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestEnsureDevRoot(t *testing.T) {
	db := setupDB(t)
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	ctx := context.Background()
	cfg := &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootUsername:  "root",
		DevRootEmail:     "Root@Estate.Local",
		DevRootPassword:  "R00t-Password!",
	}

	require.NoError(t, EnsureDevRoot(ctx, cfg, db, hasher))

	var root models.User
	require.NoError(t, db.Where("username = ?", "root").First(&root).Error)
	assert.Equal(t, "root@estate.local", root.Email)
	assert.True(t, root.IsActive())
	assert.True(t, hasher.Verify(root.Password, "R00t-Password!"))

	require.NoError(t, db.Model(&root).Update("status", models.UserStatusInactive).Error)
	require.NoError(t, EnsureDevRoot(ctx, cfg, db, hasher))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	require.NoError(t, db.First(&root, "id = ?", root.ID).Error)
	assert.True(t, root.IsActive(), "an existing root is re-activated")
}

func TestEnsureDevRoot_Skipped(t *testing.T) {
	db := setupDB(t)
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"production", &config.Config{Env: "production", DevBootstrapRoot: true, DevRootPassword: "x"}},
		{"disabled", &config.Config{Env: "development", DevRootPassword: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, EnsureDevRoot(ctx, tt.cfg, db, hasher))
			var count int64
			require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}

	err := EnsureDevRoot(ctx, &config.Config{Env: "development", DevBootstrapRoot: true}, db, hasher)
	assert.ErrorContains(t, err, "DEV_ROOT_PASSWORD")
}
