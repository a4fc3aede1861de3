package service

import (
	"context"
	"sort"

	"estate/internal/models"
	"estate/internal/observability"
	"estate/internal/repository"

	"github.com/google/uuid"
)

const saleService = "sale"

// SaleDeletePolicy decides what happens to the property of a deleted sale.
type SaleDeletePolicy string

const (
	// SaleDeleteRetain leaves the property sold.
	SaleDeleteRetain SaleDeletePolicy = "retain"
	// SaleDeleteRelease returns the property to the market.
	SaleDeleteRelease SaleDeletePolicy = "release"
)

type SaleOptions struct {
	DeletePolicy SaleDeletePolicy
}

// SaleService manages sale transactions.
type SaleService struct {
	store repository.Store
	opts  SaleOptions
}

func NewSaleService(store repository.Store, opts SaleOptions) *SaleService {
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = SaleDeleteRetain
	}
	return &SaleService{store: store, opts: opts}
}

type CreateSaleInput struct {
	BuyerID    uuid.UUID `json:"buyer_id"`
	PropertyID uuid.UUID `json:"property_id"`
}

type AlterSaleInput struct {
	ID         uuid.UUID `json:"-"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	PropertyID uuid.UUID `json:"property_id"`
}

// checkBuyerStatus rejects a buyer whose account is not active.
func checkBuyerStatus(status models.UserStatus) error {
	if status != models.UserStatusActive {
		return models.ErrUserNotActivated
	}
	return nil
}

// loadBuyer validates buyerID against the property being bought. Ownership
// is checked before anything else so an owner never buys their own listing
// whatever its state.
func loadBuyer(ctx context.Context, tx repository.Store, buyerID uuid.UUID, property *models.Property) (*models.User, error) {
	if property.OwnedBy(buyerID) {
		return nil, models.ErrBuyerIsOwner
	}
	buyer, err := tx.Users().GetByID(ctx, buyerID)
	if err != nil {
		return nil, notFoundAs(err, models.ErrUserNotFound)
	}
	if err := checkBuyerStatus(buyer.Status); err != nil {
		return nil, err
	}
	return buyer, nil
}

// markSold flips an available property to sold. Losing the flip to a
// concurrent sale reports PropertySold.
func markSold(ctx context.Context, tx repository.Store, property *models.Property) error {
	if !property.IsAvailable() {
		return models.ErrPropertySold
	}
	flipped, err := tx.Properties().TransitionStatus(ctx, property.ID, models.PropertyStatusAvailable, models.PropertyStatusSold)
	if err != nil {
		return err
	}
	if !flipped {
		return models.ErrPropertySold
	}
	property.Status = models.PropertyStatusSold
	return nil
}

// Create sells a property to a buyer. The property flip and the sale insert
// commit together.
func (s *SaleService) Create(ctx context.Context, in CreateSaleInput) (models.Result[*models.Sale], error) {
	result, err := run(ctx, saleService, "create", func(ctx context.Context) (*models.Sale, error) {
		var sale *models.Sale
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			property, err := tx.Properties().GetForUpdate(ctx, in.PropertyID)
			if err != nil {
				return notFoundAs(err, models.ErrPropertyNotFound)
			}
			buyer, err := loadBuyer(ctx, tx, in.BuyerID, property)
			if err != nil {
				return err
			}
			if err := markSold(ctx, tx, property); err != nil {
				return err
			}

			sale = &models.Sale{BuyerID: buyer.ID, PropertyID: property.ID}
			if err := tx.Sales().Create(ctx, sale); err != nil {
				return err
			}
			sale.Buyer = buyer
			sale.Property = property
			return nil
		})
		return sale, err
	})
	if err == nil {
		observability.SalesCompleted.Inc()
	}
	return result, err
}

// lockProperties locks every id in a fixed order so two transactions
// touching the same pair cannot deadlock.
func lockProperties(ctx context.Context, tx repository.Store, ids ...uuid.UUID) (map[uuid.UUID]*models.Property, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	locked := make(map[uuid.UUID]*models.Property, len(sorted))
	for _, id := range sorted {
		if _, ok := locked[id]; ok {
			continue
		}
		p, err := tx.Properties().GetForUpdate(ctx, id)
		if err != nil {
			return nil, notFoundAs(err, models.ErrPropertyNotFound)
		}
		locked[id] = p
	}
	return locked, nil
}

// Alter re-points a sale at another buyer or property. Moving to another
// property sells the new one and releases the old one.
func (s *SaleService) Alter(ctx context.Context, in AlterSaleInput) (models.Result[*models.Sale], error) {
	return run(ctx, saleService, "alter", func(ctx context.Context) (*models.Sale, error) {
		var sale *models.Sale
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if sale, err = tx.Sales().GetByID(ctx, in.ID); err != nil {
				return notFoundAs(err, models.ErrSaleNotFound)
			}

			locked, err := lockProperties(ctx, tx, sale.PropertyID, in.PropertyID)
			if err != nil {
				return err
			}
			target := locked[in.PropertyID]

			buyer, err := loadBuyer(ctx, tx, in.BuyerID, target)
			if err != nil {
				return err
			}

			if in.PropertyID != sale.PropertyID {
				if err := markSold(ctx, tx, target); err != nil {
					return err
				}
				if _, err := tx.Properties().TransitionStatus(ctx, sale.PropertyID, models.PropertyStatusSold, models.PropertyStatusAvailable); err != nil {
					return err
				}
			}

			sale.BuyerID = buyer.ID
			sale.PropertyID = target.ID
			if err := tx.Sales().Update(ctx, sale, "buyer_id", "property_id"); err != nil {
				return err
			}
			sale.Buyer = buyer
			sale.Property = target
			return nil
		})
		return sale, err
	})
}

// Delete removes a sale. Whether its property returns to the market depends
// on the configured SaleDeletePolicy.
func (s *SaleService) Delete(ctx context.Context, id uuid.UUID) (models.Result[*models.Sale], error) {
	return run(ctx, saleService, "delete", func(ctx context.Context) (*models.Sale, error) {
		var sale *models.Sale
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if sale, err = tx.Sales().GetByID(ctx, id); err != nil {
				return notFoundAs(err, models.ErrSaleNotFound)
			}
			if err := tx.Sales().Delete(ctx, id); err != nil {
				return notFoundAs(err, models.ErrSaleNotFound)
			}
			if s.opts.DeletePolicy == SaleDeleteRelease {
				_, err := tx.Properties().TransitionStatus(ctx, sale.PropertyID, models.PropertyStatusSold, models.PropertyStatusAvailable)
				return err
			}
			return nil
		})
		return sale, err
	})
}

// ListSales returns sales with buyer and property, newest first.
func (s *SaleService) ListSales(ctx context.Context, in ListInput) (models.Result[models.Page[models.Sale]], error) {
	return run(ctx, saleService, "list", func(ctx context.Context) (models.Page[models.Sale], error) {
		bounds, err := resolveList(in)
		if err != nil {
			return models.Page[models.Sale]{}, err
		}
		items, total, err := s.store.Sales().List(ctx, in.Filter, bounds)
		if err != nil {
			return models.Page[models.Sale]{}, err
		}
		return page(items, total, bounds), nil
	})
}
