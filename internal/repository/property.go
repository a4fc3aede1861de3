package repository

import (
	"context"
	"time"

	"estate/internal/filter"
	"estate/internal/models"
	"estate/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyColumns lists the fields a property listing may filter on.
var PropertyColumns = filter.Columns{
	"address":     "properties.address",
	"price":       "properties.price",
	"living_area": "properties.living_area",
}

// PropertyRepository defines persistence operations for properties.
type PropertyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	// GetForUpdate loads the row and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	Update(ctx context.Context, property *models.Property, fields ...string) error
	// TransitionStatus moves the property from one status to another only if
	// it is currently in from, and reports whether it did.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.PropertyStatus) (bool, error)
	ListAvailable(ctx context.Context, spec filter.Spec, page filter.Bounds) ([]models.Property, int64, error)
	OwnerStats(ctx context.Context, ownerID uuid.UUID) (*models.OwnerStats, error)
}

type propertyRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPropertyRepository returns a new PropertyRepository implementation.
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db, log: observability.NewRepoLogger("properties")}
}

func (r *propertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Property", id)
	}
	return &property, nil
}

func (r *propertyRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&property, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "Property", id)
	}
	return &property, nil
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	if err := r.db.WithContext(ctx).Create(property).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": property.ID, "owner_id": property.OwnerID})
	return nil
}

func (r *propertyRepository) Update(ctx context.Context, property *models.Property, fields ...string) error {
	res := r.db.WithContext(ctx).Model(property).Select(append(fields, "updated_at")).Updates(property)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Property", property.ID)
	}
	r.log.LogUpdate(ctx, map[string]any{"id": property.ID, "fields": fields})
	return nil
}

func (r *propertyRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.PropertyStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Property{}).
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

func (r *propertyRepository) ListAvailable(ctx context.Context, spec filter.Spec, page filter.Bounds) ([]models.Property, int64, error) {
	defer observability.TrackQuery("list", "properties")()

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Property{}).
			Where("properties.status = ?", models.PropertyStatusAvailable).
			Scopes(spec.Scope(PropertyColumns))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	properties := make([]models.Property, 0, page.Length)
	err := base().
		Order("properties.created_at DESC").
		Scopes(page.Scope()).
		Find(&properties).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return properties, total, nil
}

func (r *propertyRepository) OwnerStats(ctx context.Context, ownerID uuid.UUID) (*models.OwnerStats, error) {
	var row struct {
		Listings          int64
		AverageLivingArea float64
	}
	err := r.db.WithContext(ctx).Model(&models.Property{}).
		Select("COUNT(*) AS listings, COALESCE(AVG(living_area), 0) AS average_living_area").
		Where("owner_id = ?", ownerID).
		Scan(&row).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.OwnerStats{
		OwnerID:           ownerID,
		Listings:          row.Listings,
		AverageLivingArea: row.AverageLivingArea,
	}, nil
}
