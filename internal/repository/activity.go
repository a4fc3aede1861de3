package repository

import (
	"context"
	"time"

	"estate/internal/filter"
	"estate/internal/models"
	"estate/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityColumns lists the fields an activity listing may filter on.
var ActivityColumns = filter.Columns{
	"path":     "activities.path",
	"duration": "activities.duration",
}

// ActivityQuery narrows an activity listing.
type ActivityQuery struct {
	Spec   filter.Spec
	UserID *uuid.UUID
	// DurationCeiling keeps only records strictly faster than it. Zero or
	// negative disables the cut.
	DurationCeiling time.Duration
}

// ActivityRepository defines persistence operations for activities.
type ActivityRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity, fields ...string) error
	List(ctx context.Context, q ActivityQuery, page filter.Bounds) ([]models.Activity, int64, error)
}

type activityRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewActivityRepository returns a new ActivityRepository implementation.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db, log: observability.NewRepoLogger("activities")}
}

func (r *activityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Activity", id)
	}
	return &activity, nil
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(activity).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": activity.ID, "user_id": activity.UserID})
	return nil
}

func (r *activityRepository) Update(ctx context.Context, activity *models.Activity, fields ...string) error {
	res := r.db.WithContext(ctx).Model(activity).Select(append(fields, "updated_at")).Updates(activity)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Activity", activity.ID)
	}
	r.log.LogUpdate(ctx, map[string]any{"id": activity.ID, "fields": fields})
	return nil
}

func (r *activityRepository) List(ctx context.Context, q ActivityQuery, page filter.Bounds) ([]models.Activity, int64, error) {
	defer observability.TrackQuery("list", "activities")()

	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Activity{}).
			Where("activities.status = ?", models.ActivityStatusActive).
			Scopes(q.Spec.Scope(ActivityColumns))
		if q.UserID != nil {
			db = db.Where("activities.user_id = ?", *q.UserID)
		}
		if q.DurationCeiling > 0 {
			db = db.Where("activities.duration < ?", int64(q.DurationCeiling))
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	activities := make([]models.Activity, 0, page.Length)
	err := base().
		Order("activities.created_at DESC").
		Scopes(page.Scope()).
		Find(&activities).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return activities, total, nil
}
