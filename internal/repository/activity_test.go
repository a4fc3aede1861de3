package repository

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"estate/internal/filter"
	"estate/internal/models"
	"estate/internal/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	ann := createUser(t, db, userFixture{})
	bob := createUser(t, db, userFixture{})

	records := []*models.Activity{
		{UserID: ann.ID, Path: "/api/properties-->GET", Duration: 50 * time.Microsecond},
		{UserID: ann.ID, Path: "/api/sales-->POST", Duration: 2 * time.Millisecond},
		{UserID: bob.ID, Path: "/api/properties-->POST", Duration: 10 * time.Microsecond},
		{UserID: bob.ID, Path: "/api/users-->GET", Duration: 100 * time.Microsecond},
	}
	for _, a := range records {
		require.NoError(t, repo.Create(ctx, a))
	}

	all, total, err := repo.List(ctx, ActivityQuery{}, filter.Pagination{}.Resolve())
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, all, 4)

	mine, total, err := repo.List(ctx, ActivityQuery{UserID: &ann.ID}, filter.Pagination{}.Resolve())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, a := range mine {
		assert.Equal(t, ann.ID, a.UserID)
	}

	fast, total, err := repo.List(ctx, ActivityQuery{DurationCeiling: 100 * time.Microsecond}, filter.Pagination{}.Resolve())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "the ceiling itself is excluded")
	assert.Len(t, fast, 2)
	for _, a := range fast {
		assert.Less(t, a.Duration, 100*time.Microsecond)
	}

	_, total, err = repo.List(ctx, ActivityQuery{DurationCeiling: -1}, filter.Pagination{}.Resolve())
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	byPath, total, err := repo.List(ctx, ActivityQuery{Spec: filter.Spec{
		"path": {Operator: filter.Start, Value: "/api/properties"},
	}}, filter.Pagination{}.Resolve())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byPath, 2)
}

func TestActivityRepository_Update_Deactivates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	user := createUser(t, db, userFixture{})
	activity := &models.Activity{UserID: user.ID, Path: "/x-->GET"}
	require.NoError(t, repo.Create(ctx, activity))

	stored, err := repo.GetByID(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusActive, stored.Status)

	stored.Status = models.ActivityStatusInactive
	require.NoError(t, repo.Update(ctx, stored, "status"))

	_, total, err := repo.List(ctx, ActivityQuery{}, filter.Pagination{}.Resolve())
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, models.IsNotFound(err))
}

func TestActivityRepository_Create_RequiresExistingUser(t *testing.T) {
	db := setupTestDB(t)
	err := NewActivityRepository(db).Create(context.Background(), &models.Activity{UserID: uuid.New(), Path: "/x"})
	assert.Error(t, err)
}

func TestActivityRepository_LogsWrites(t *testing.T) {
	prevLogger, prevConfig := observability.GlobalLogger, observability.Config
	t.Cleanup(func() {
		observability.GlobalLogger = prevLogger
		observability.Config = prevConfig
	})
	var buf bytes.Buffer
	observability.SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	observability.Config.EnableRepoLogging = true

	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()
	user := createUser(t, db, userFixture{})

	activity := &models.Activity{UserID: user.ID, Path: "/api/sales-->GET"}
	require.NoError(t, repo.Create(ctx, activity))
	activity.Path = "/api/sales-->PUT"
	require.NoError(t, repo.Update(ctx, activity, "path"))
	require.Error(t, repo.Create(ctx, &models.Activity{UserID: uuid.New(), Path: "/x"}))

	out := buf.String()
	assert.Contains(t, out, `"table":"activities"`)
	assert.Contains(t, out, `"msg":"repository create"`)
	assert.Contains(t, out, `"msg":"repository update"`)
	assert.Contains(t, out, `"msg":"repository error"`)
	assert.Contains(t, out, activity.ID.String())
}
