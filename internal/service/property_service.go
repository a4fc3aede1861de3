package service

import (
	"context"

	"estate/internal/cache"
	"estate/internal/models"
	"estate/internal/observability"
	"estate/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const propertyService = "property"

// PropertyService manages listing lifecycle.
type PropertyService struct {
	store repository.Store
}

func NewPropertyService(store repository.Store) *PropertyService {
	return &PropertyService{store: store}
}

type CreatePropertyInput struct {
	Address    string     `json:"address"`
	Price      float64    `json:"price"`
	LivingArea float64    `json:"living_area"`
	OwnerID    *uuid.UUID `json:"owner_id"`
}

type AlterPropertyInput struct {
	ID         uuid.UUID  `json:"-"`
	Address    string     `json:"address"`
	Price      float64    `json:"price"`
	LivingArea float64    `json:"living_area"`
	OwnerID    *uuid.UUID `json:"owner_id"`
}

func validValues(price, area float64) error {
	if price < 0 || area < 0 {
		return models.ErrInvalidPropertyValues
	}
	return nil
}

// checkOwner rejects a missing or inactive owner. A nil owner is allowed.
func checkOwner(ctx context.Context, users repository.UserRepository, ownerID *uuid.UUID) error {
	if ownerID == nil {
		return nil
	}
	owner, err := users.GetByID(ctx, *ownerID)
	if err != nil {
		return notFoundAs(err, models.ErrOwnerNotFound)
	}
	if !owner.IsActive() {
		return models.ErrOwnerNotActivated
	}
	return nil
}

// Create lists a new available property.
func (s *PropertyService) Create(ctx context.Context, in CreatePropertyInput) (models.Result[*models.Property], error) {
	result, err := run(ctx, propertyService, "create", func(ctx context.Context) (*models.Property, error) {
		if err := validValues(in.Price, in.LivingArea); err != nil {
			return nil, err
		}

		var property *models.Property
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			if err := checkOwner(ctx, tx.Users(), in.OwnerID); err != nil {
				return err
			}
			property = &models.Property{
				Address:    in.Address,
				Price:      in.Price,
				LivingArea: in.LivingArea,
				OwnerID:    in.OwnerID,
				Status:     models.PropertyStatusAvailable,
			}
			return tx.Properties().Create(ctx, property)
		})
		return property, err
	})
	if err == nil {
		cache.InvalidateOwnerStats(ctx, in.OwnerID)
	}
	return result, err
}

// Alter updates address, price, living area and owner. Both the current
// and the target owner must be active.
func (s *PropertyService) Alter(ctx context.Context, in AlterPropertyInput) (models.Result[*models.Property], error) {
	var previousOwner *uuid.UUID
	result, err := run(ctx, propertyService, "alter", func(ctx context.Context) (*models.Property, error) {
		if err := validValues(in.Price, in.LivingArea); err != nil {
			return nil, err
		}

		var property *models.Property
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if property, err = tx.Properties().GetByID(ctx, in.ID); err != nil {
				return notFoundAs(err, models.ErrPropertyNotFound)
			}
			if err := checkOwner(ctx, tx.Users(), property.OwnerID); err != nil {
				return err
			}
			if err := checkOwner(ctx, tx.Users(), in.OwnerID); err != nil {
				return err
			}

			previousOwner = property.OwnerID
			property.Address = in.Address
			property.Price = in.Price
			property.LivingArea = in.LivingArea
			property.OwnerID = in.OwnerID
			return tx.Properties().Update(ctx, property, "address", "price", "living_area", "owner_id")
		})
		return property, err
	})
	if err == nil {
		cache.InvalidateOwnerStats(ctx, previousOwner, in.OwnerID)
	}
	return result, err
}

// Deactivate takes an available property off the market.
func (s *PropertyService) Deactivate(ctx context.Context, id uuid.UUID) (models.Result[*models.Property], error) {
	return run(ctx, propertyService, "deactivate", func(ctx context.Context) (*models.Property, error) {
		return s.transition(ctx, id, models.PropertyStatusAvailable, models.PropertyStatusSold, models.ErrAlreadySold)
	})
}

// Activate puts a sold property back on the market.
func (s *PropertyService) Activate(ctx context.Context, id uuid.UUID) (models.Result[*models.Property], error) {
	return run(ctx, propertyService, "activate", func(ctx context.Context) (*models.Property, error) {
		return s.transition(ctx, id, models.PropertyStatusSold, models.PropertyStatusAvailable, models.ErrAlreadyAvailable)
	})
}

func (s *PropertyService) transition(ctx context.Context, id uuid.UUID, from, to models.PropertyStatus, already *models.AppError) (*models.Property, error) {
	var property *models.Property
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if property, err = tx.Properties().GetByID(ctx, id); err != nil {
			return notFoundAs(err, models.ErrPropertyNotFound)
		}
		if property.Status != from {
			return already
		}
		flipped, err := tx.Properties().TransitionStatus(ctx, id, from, to)
		if err != nil {
			return err
		}
		if !flipped {
			return already
		}
		property.Status = to
		return nil
	})
	return property, err
}

// ListProperties returns available properties matching the filter.
func (s *PropertyService) ListProperties(ctx context.Context, in ListInput) (models.Result[models.Page[models.Property]], error) {
	return run(ctx, propertyService, "list", func(ctx context.Context) (models.Page[models.Property], error) {
		bounds, err := resolveList(in)
		if err != nil {
			return models.Page[models.Property]{}, err
		}
		items, total, err := s.store.Properties().ListAvailable(ctx, in.Filter, bounds)
		if err != nil {
			return models.Page[models.Property]{}, err
		}
		return page(items, total, bounds), nil
	})
}

// OwnerStats summarizes the listings of an existing owner.
func (s *PropertyService) OwnerStats(ctx context.Context, ownerID uuid.UUID) (models.Result[*models.OwnerStats], error) {
	return run(ctx, propertyService, "owner_stats", func(ctx context.Context) (*models.OwnerStats, error) {
		span, ctx := observability.StartClientSpan(ctx, "cache", "owner_stats")
		span.AddAttributes(attribute.String("owner.id", ownerID.String()))
		defer span.End()

		var stats models.OwnerStats
		err := cache.Aside(ctx, cache.OwnerStatsKey(ownerID), &stats, cache.OwnerStatsTTL, func() error {
			if _, err := s.store.Users().GetByID(ctx, ownerID); err != nil {
				return notFoundAs(err, models.ErrOwnerNotFound)
			}
			found, err := s.store.Properties().OwnerStats(ctx, ownerID)
			if err != nil {
				return err
			}
			stats = *found
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &stats, nil
	})
}
