package service

import (
	"context"
	"encoding/json"
	"time"

	"estate/internal/audit"
	"estate/internal/events"
	"estate/internal/models"
	"estate/internal/observability"
	"estate/internal/repository"
	"estate/internal/validation"

	"github.com/google/uuid"
)

const activityService = "activity"

// DefaultActivityDurationCeiling is the listing cut applied when
// ActivityOptions leaves DurationCeiling at zero.
const DefaultActivityDurationCeiling = 100 * time.Microsecond

type ActivityOptions struct {
	// DurationCeiling hides records that took this long or longer from
	// listings. Zero selects DefaultActivityDurationCeiling and a negative
	// value disables the cut.
	DurationCeiling time.Duration
	// Publisher receives an ActivityRecorded event per stored activity.
	Publisher events.Publisher
}

// ActivityService stores and lists the API activity trail.
type ActivityService struct {
	store repository.Store
	opts  ActivityOptions
}

func NewActivityService(store repository.Store, opts ActivityOptions) *ActivityService {
	if opts.DurationCeiling == 0 {
		opts.DurationCeiling = DefaultActivityDurationCeiling
	}
	return &ActivityService{store: store, opts: opts}
}

type CreateActivityInput struct {
	UserID   uuid.UUID     `json:"user_id"`
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
}

type AlterActivityInput struct {
	ID       uuid.UUID     `json:"-"`
	UserID   uuid.UUID     `json:"user_id"`
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
}

type ListActivitiesInput struct {
	ListInput
	UserID *uuid.UUID `json:"user_id"`
}

// activityEvent is the payload of ActivityRecorded.
type activityEvent struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Path       string    `json:"path"`
	DurationNS int64     `json:"duration_ns"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Create stores an activity for an active user.
func (s *ActivityService) Create(ctx context.Context, in CreateActivityInput) (models.Result[*models.Activity], error) {
	result, err := run(ctx, activityService, "create", func(ctx context.Context) (*models.Activity, error) {
		if in.UserID == uuid.Nil {
			return nil, models.ErrActivityRejected
		}
		if err := validation.ValidateActivityPath(in.Path, models.MaxActivityPathLength); err != nil {
			return nil, models.NewValidationError(err.Error())
		}

		var activity *models.Activity
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			if _, err := activeUser(ctx, tx.Users(), in.UserID); err != nil {
				return err
			}
			activity = &models.Activity{
				UserID:   in.UserID,
				Path:     in.Path,
				Duration: in.Duration,
				Status:   models.ActivityStatusActive,
			}
			return tx.Activities().Create(ctx, activity)
		})
		return activity, err
	})
	if err == nil {
		s.publish(ctx, result.Entity)
	}
	return result, err
}

func (s *ActivityService) publish(ctx context.Context, a *models.Activity) {
	if s.opts.Publisher == nil {
		return
	}
	payload, err := json.Marshal(activityEvent{
		ID:         a.ID,
		UserID:     a.UserID,
		Path:       a.Path,
		DurationNS: int64(a.Duration),
		RecordedAt: a.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := s.opts.Publisher.Publish(ctx, events.ActivityRecorded, payload, a.UserID.String()); err != nil {
		observability.LogAsyncOperationError(ctx, "events.publish", err, map[string]any{"event": events.ActivityRecorded})
	}
}

// Alter updates an active activity record.
func (s *ActivityService) Alter(ctx context.Context, in AlterActivityInput) (models.Result[*models.Activity], error) {
	return run(ctx, activityService, "alter", func(ctx context.Context) (*models.Activity, error) {
		if in.UserID == uuid.Nil {
			return nil, models.ErrActivityRejected
		}
		if err := validation.ValidateActivityPath(in.Path, models.MaxActivityPathLength); err != nil {
			return nil, models.NewValidationError(err.Error())
		}

		var activity *models.Activity
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if activity, err = tx.Activities().GetByID(ctx, in.ID); err != nil {
				return notFoundAs(err, models.ErrActivityNotFound)
			}
			if activity.Status != models.ActivityStatusActive {
				return models.ErrActivityNotFound
			}
			if in.UserID != activity.UserID {
				if _, err := activeUser(ctx, tx.Users(), in.UserID); err != nil {
					return err
				}
			}

			activity.UserID = in.UserID
			activity.Path = in.Path
			activity.Duration = in.Duration
			return tx.Activities().Update(ctx, activity, "user_id", "path", "duration")
		})
		return activity, err
	})
}

// ListActivities returns active records, optionally for one user.
func (s *ActivityService) ListActivities(ctx context.Context, in ListActivitiesInput) (models.Result[models.Page[models.Activity]], error) {
	return run(ctx, activityService, "list", func(ctx context.Context) (models.Page[models.Activity], error) {
		bounds, err := resolveList(in.ListInput)
		if err != nil {
			return models.Page[models.Activity]{}, err
		}
		items, total, err := s.store.Activities().List(ctx, repository.ActivityQuery{
			Spec:            in.Filter,
			UserID:          in.UserID,
			DurationCeiling: s.opts.DurationCeiling,
		}, bounds)
		if err != nil {
			return models.Page[models.Activity]{}, err
		}
		return page(items, total, bounds), nil
	})
}

// Persist stores an audit entry. It is the audit.PersistFunc of the
// server's recorder.
func (s *ActivityService) Persist(ctx context.Context, e audit.Entry) error {
	path := validation.TruncateRunes(e.Path, models.MaxActivityPathLength)
	_, err := s.Create(ctx, CreateActivityInput{UserID: e.UserID, Path: path, Duration: e.Duration})
	return err
}
