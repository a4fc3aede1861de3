package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"estate/internal/audit"
	"estate/internal/events"
	"estate/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	eventType string
	key       string
	payload   []byte
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload []byte, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType: eventType, key: key, payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestActivityService_Create(t *testing.T) {
	h := newHarness(t)
	pub := &recordingPublisher{}
	h.activities = NewActivityService(h.store, ActivityOptions{Publisher: pub})
	ctx := context.Background()
	user := h.signup(t, "tracked", true)
	dormant := h.signup(t, "dormant", false)

	res, err := h.activities.Create(ctx, CreateActivityInput{Path: "/api/property-->GET"})
	assertDomainError(t, models.ErrActivityRejected, res.Status, err)

	res, err = h.activities.Create(ctx, CreateActivityInput{UserID: uuid.New(), Path: "/api/property-->GET"})
	assertDomainError(t, models.ErrUserNotFound, res.Status, err)

	res, err = h.activities.Create(ctx, CreateActivityInput{UserID: dormant.ID, Path: "/api/property-->GET"})
	assertDomainError(t, models.ErrUserNotFound, res.Status, err)

	res, err = h.activities.Create(ctx, CreateActivityInput{UserID: user.ID, Path: "  "})
	require.Error(t, err)
	assert.Equal(t, 400, res.Status.Code)

	assert.Zero(t, h.count(t, &models.Activity{}))
	assert.Empty(t, pub.events)

	res, err = h.activities.Create(ctx, CreateActivityInput{UserID: user.ID, Path: "/api/property-->GET", Duration: 3 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusActive, res.Entity.Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.ActivityRecorded, pub.events[0].eventType)
	assert.Equal(t, user.ID.String(), pub.events[0].key)

	var payload activityEvent
	require.NoError(t, json.Unmarshal(pub.events[0].payload, &payload))
	assert.Equal(t, res.Entity.ID, payload.ID)
	assert.Equal(t, int64(3*time.Millisecond), payload.DurationNS)
}

func TestActivityService_Alter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.signup(t, "first", true)
	other := h.signup(t, "second", true)
	dormant := h.signup(t, "dormant", false)

	created, err := h.activities.Create(ctx, CreateActivityInput{UserID: user.ID, Path: "/api/sale-->POST"})
	require.NoError(t, err)
	id := created.Entity.ID

	res, err := h.activities.Alter(ctx, AlterActivityInput{ID: id, UserID: other.ID, Path: "/api/sale-->PUT", Duration: time.Second})
	require.NoError(t, err)
	assert.Equal(t, other.ID, res.Entity.UserID)
	assert.Equal(t, "/api/sale-->PUT", res.Entity.Path)

	res, err = h.activities.Alter(ctx, AlterActivityInput{ID: id, UserID: dormant.ID, Path: "/api/sale-->PUT"})
	assertDomainError(t, models.ErrUserNotFound, res.Status, err)

	res, err = h.activities.Alter(ctx, AlterActivityInput{ID: id, Path: "/api/sale-->PUT"})
	assertDomainError(t, models.ErrActivityRejected, res.Status, err)

	var kept models.Activity
	require.NoError(t, h.db.First(&kept, "id = ?", id).Error)
	assert.Equal(t, other.ID, kept.UserID, "a rejected alter leaves the actor in place")

	res, err = h.activities.Alter(ctx, AlterActivityInput{ID: uuid.New(), UserID: user.ID, Path: "/x"})
	assertDomainError(t, models.ErrActivityNotFound, res.Status, err)

	require.NoError(t, h.db.Model(&models.Activity{}).Where("id = ?", id).
		Update("status", models.ActivityStatusInactive).Error)
	res, err = h.activities.Alter(ctx, AlterActivityInput{ID: id, UserID: other.ID, Path: "/x"})
	assertDomainError(t, models.ErrActivityNotFound, res.Status, err)
}

func TestActivityService_ListActivities(t *testing.T) {
	h := newHarness(t)
	h.activities = NewActivityService(h.store, ActivityOptions{DurationCeiling: 100 * time.Millisecond})
	ctx := context.Background()
	user := h.signup(t, "first", true)
	other := h.signup(t, "second", true)

	for _, in := range []CreateActivityInput{
		{UserID: user.ID, Path: "/api/user-->GET", Duration: 10 * time.Millisecond},
		{UserID: user.ID, Path: "/api/sale-->POST", Duration: time.Second},
		{UserID: other.ID, Path: "/api/user-->GET", Duration: time.Millisecond},
	} {
		_, err := h.activities.Create(ctx, in)
		require.NoError(t, err)
	}

	res, err := h.activities.ListActivities(ctx, ListActivitiesInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Entity.Total, "slow records are hidden by the ceiling")

	res, err = h.activities.ListActivities(ctx, ListActivitiesInput{UserID: &user.ID})
	require.NoError(t, err)
	require.Len(t, res.Entity.Items, 1)
	assert.Equal(t, "/api/user-->GET", res.Entity.Items[0].Path)

	unbounded := NewActivityService(h.store, ActivityOptions{DurationCeiling: -1})
	res, err = unbounded.ListActivities(ctx, ListActivitiesInput{UserID: &user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Entity.Total)
}

func TestActivityService_DefaultDurationCeiling(t *testing.T) {
	h := newHarness(t)
	svc := NewActivityService(h.store, ActivityOptions{})
	ctx := context.Background()
	user := h.signup(t, "timed", true)

	for _, d := range []time.Duration{10 * time.Microsecond, DefaultActivityDurationCeiling, 2 * time.Second} {
		_, err := svc.Create(ctx, CreateActivityInput{UserID: user.ID, Path: "/api/property-->GET", Duration: d})
		require.NoError(t, err)
	}

	res, err := svc.ListActivities(ctx, ListActivitiesInput{})
	require.NoError(t, err)
	require.Len(t, res.Entity.Items, 1, "records at or above the ceiling are hidden")
	assert.Equal(t, 10*time.Microsecond, res.Entity.Items[0].Duration)
}

func TestActivityService_PersistFeedsRecorder(t *testing.T) {
	h := newHarness(t)
	user := h.signup(t, "tracked", true)

	rec := audit.NewRecorder(h.activities.Persist, audit.Options{BufferSize: 8, Workers: 1})
	assert.True(t, rec.Record(audit.Entry{UserID: user.ID, Path: "/api/property-->GET", Duration: time.Millisecond}))
	assert.True(t, rec.Record(audit.Entry{UserID: user.ID, Path: "/api/" + strings.Repeat("p", 400), Duration: time.Millisecond}))
	assert.True(t, rec.Record(audit.Entry{Path: "/anonymous-->GET"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	var stored []models.Activity
	require.NoError(t, h.db.Where("user_id = ?", user.ID).Find(&stored).Error)
	require.Len(t, stored, 2, "anonymous entries are rejected")
	for _, a := range stored {
		assert.LessOrEqual(t, utf8.RuneCountInString(a.Path), models.MaxActivityPathLength)
	}
}

func TestActivityService_PersistKeepsMultiByteTruncationValid(t *testing.T) {
	h := newHarness(t)
	user := h.signup(t, "unicode", true)

	long := "/api/property/" + strings.Repeat("ß", 400) + "-->GET"
	require.NoError(t, h.activities.Persist(context.Background(), audit.Entry{UserID: user.ID, Path: long}))

	var stored models.Activity
	require.NoError(t, h.db.First(&stored, "user_id = ?", user.ID).Error)
	assert.True(t, utf8.ValidString(stored.Path))
	assert.Equal(t, models.MaxActivityPathLength, utf8.RuneCountInString(stored.Path))
	assert.True(t, strings.HasPrefix(long, stored.Path))
}
