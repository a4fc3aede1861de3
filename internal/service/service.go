// Package service implements the domain rules for users, properties, sales
// and activities on top of the repository Store.
package service

import (
	"context"
	"errors"
	"time"

	"estate/internal/filter"
	"estate/internal/models"
	"estate/internal/observability"
)

// ListInput selects one page of a filtered listing.
type ListInput struct {
	Filter filter.Spec       `json:"filter"`
	Page   filter.Pagination `json:"pagination"`
}

// run executes one service operation inside a span, records its metrics and
// wraps the outcome in a Result.
func run[T any](ctx context.Context, service, operation string, fn func(context.Context) (T, error)) (models.Result[T], error) {
	start := time.Now()
	span, ctx := observability.StartServiceSpan(ctx, service, operation)
	defer span.End()

	entity, err := fn(ctx)
	if err != nil {
		err = asAppError(err)
		span.SetError(err)
		observability.ObserveServiceCall(service, operation, codeOf(err), start)
		return models.Result[T]{Status: statusOf(err)}, err
	}

	observability.ObserveServiceCall(service, operation, "OK", start)
	return models.Succeeded(entity), nil
}

func asAppError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func codeOf(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}

func statusOf(err error) models.Status {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return models.NewInternalError(err).Status()
}

// notFoundAs replaces a repository lookup miss with the domain error the
// caller reports.
func notFoundAs(err error, domain *models.AppError) error {
	if models.IsNotFound(err) {
		return domain
	}
	return err
}

func page[T any](items []T, total int64, b filter.Bounds) models.Page[T] {
	if items == nil {
		items = []T{}
	}
	return models.Page[T]{Items: items, Total: total, Page: b.Page, Length: b.Length}
}

func resolveList(in ListInput) (filter.Bounds, error) {
	if err := in.Filter.Validate(); err != nil {
		return filter.Bounds{}, models.NewValidationError(err.Error())
	}
	return in.Page.Resolve(), nil
}
