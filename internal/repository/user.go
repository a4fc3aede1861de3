package repository

import (
	"context"
	"errors"
	"time"

	"estate/internal/filter"
	"estate/internal/models"
	"estate/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserColumns lists the fields a user listing may filter on.
var UserColumns = filter.Columns{
	"username":   "users.username",
	"first_name": "users.first_name",
	"last_name":  "users.last_name",
	"email":      "users.email",
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetActiveByUsername and GetActiveByEmail return (nil, nil) when no
	// active user matches.
	GetActiveByUsername(ctx context.Context, username string) (*models.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)
	// ExistsByUsername and ExistsByEmail ignore the record with exceptID.
	ExistsByUsername(ctx context.Context, username string, exceptID *uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string, exceptID *uuid.UUID) (bool, error)
	Create(ctx context.Context, user *models.User) error
	// Update writes only the named columns (plus updated_at).
	Update(ctx context.Context, user *models.User, fields ...string) error
	// TransitionStatus flips the account status only if it is currently
	// from, and reports whether it did.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.UserStatus) (bool, error)
	List(ctx context.Context, spec filter.Spec, page filter.Bounds) ([]models.UserWithActivityCount, int64, error)
	SearchByName(ctx context.Context, search string) ([]models.User, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) getActiveBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", value, models.UserStatusActive).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetActiveByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getActiveBy(ctx, "username", username)
}

func (r *userRepository) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getActiveBy(ctx, "email", email)
}

func (r *userRepository) exists(ctx context.Context, column, value string, exceptID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value)
	if exceptID != nil {
		q = q.Where("id <> ?", *exceptID)
	}
	var count int64
	if err := q.Limit(1).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string, exceptID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "username", username, exceptID)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string, exceptID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "email", email, exceptID)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if taken := uniqueViolation(err); taken != nil {
			return taken
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": user.ID})
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User, fields ...string) error {
	res := r.db.WithContext(ctx).Model(user).Select(append(fields, "updated_at")).Updates(user)
	if res.Error != nil {
		if taken := uniqueViolation(res.Error); taken != nil {
			return taken
		}
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	r.log.LogUpdate(ctx, map[string]any{"id": user.ID, "fields": fields})
	return nil
}

func (r *userRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.UserStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "transition_status")
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 1 {
		r.log.LogUpdate(ctx, map[string]any{"id": id, "status": to})
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) List(ctx context.Context, spec filter.Spec, page filter.Bounds) ([]models.UserWithActivityCount, int64, error) {
	defer observability.TrackQuery("list", "users")()

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.User{}).
			Where("users.status = ?", models.UserStatusActive).
			Scopes(spec.Scope(UserColumns))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	counts := r.db.Model(&models.Activity{}).
		Select("user_id, COUNT(*) AS total").
		Where("status = ?", models.ActivityStatusActive).
		Group("user_id")

	rows := make([]models.UserWithActivityCount, 0, page.Length)
	err := base().
		Select("users.*, COALESCE(ac.total, 0) AS total_activities").
		Joins("LEFT JOIN (?) AS ac ON ac.user_id = users.id", counts).
		Order("users.created_at DESC").
		Scopes(page.Scope()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return rows, total, nil
}

func (r *userRepository) SearchByName(ctx context.Context, search string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("status = ?", models.UserStatusActive).
		Scopes(filter.AnyOf(filter.Field{Operator: filter.Contains, Value: search}, "first_name", "last_name")).
		Order("first_name, last_name").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
