package repository

import (
	"context"

	"estate/internal/filter"
	"estate/internal/models"
	"estate/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleColumns lists the buyer fields a sale listing may filter on.
var SaleColumns = filter.Columns{
	"first_name": "buyers.first_name",
	"last_name":  "buyers.last_name",
	"email":      "buyers.email",
	"username":   "buyers.username",
}

// SaleBuyerSearchField matches one term against every buyer column.
const SaleBuyerSearchField = "buyer"

// SaleRepository defines persistence operations for sales.
type SaleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	Create(ctx context.Context, sale *models.Sale) error
	Update(ctx context.Context, sale *models.Sale, fields ...string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, spec filter.Spec, page filter.Bounds) ([]models.Sale, int64, error)
}

type saleRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewSaleRepository returns a new SaleRepository implementation.
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db, log: observability.NewRepoLogger("sales")}
}

func (r *saleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Sale", id)
	}
	return &sale, nil
}

func (r *saleRepository) Create(ctx context.Context, sale *models.Sale) error {
	if err := r.db.WithContext(ctx).Omit("Buyer", "Property").Create(sale).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": sale.ID, "property_id": sale.PropertyID, "buyer_id": sale.BuyerID})
	return nil
}

func (r *saleRepository) Update(ctx context.Context, sale *models.Sale, fields ...string) error {
	res := r.db.WithContext(ctx).Model(sale).Select(append(fields, "updated_at")).Updates(sale)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Sale", sale.ID)
	}
	r.log.LogUpdate(ctx, map[string]any{"id": sale.ID, "fields": fields})
	return nil
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Sale{}, "id = ?", id)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Sale", id)
	}
	r.log.LogDelete(ctx, map[string]any{"id": id})
	return nil
}

func (r *saleRepository) List(ctx context.Context, spec filter.Spec, page filter.Bounds) ([]models.Sale, int64, error) {
	defer observability.TrackQuery("list", "sales")()

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Sale{}).
			Joins("JOIN users AS buyers ON buyers.id = sales.buyer_id").
			Scopes(spec.Scope(SaleColumns))
		if term, ok := spec[SaleBuyerSearchField]; ok {
			q = q.Scopes(filter.AnyOf(term,
				"buyers.first_name", "buyers.last_name", "buyers.email", "buyers.username"))
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	sales := make([]models.Sale, 0, page.Length)
	err := base().
		Preload("Buyer").
		Preload("Property").
		Order("sales.created_at DESC").
		Scopes(page.Scope()).
		Find(&sales).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return sales, total, nil
}
