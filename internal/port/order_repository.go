package port

import (
	"context"

	"github.com/rl1809/donation-checkout/internal/core/domain"
)

type OrderRepository interface {
	// FindByID loads an order with its items, returns domain.ErrOrderNotFound if absent
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)

	// CreateOrder persists a new, empty order at version 0
	CreateOrder(ctx context.Context, order *domain.Order) error

	// SaveOrder writes the order and its item set with an optimistic version check.
	// Items no longer attached to the order are deleted.
	SaveOrder(ctx context.Context, order *domain.Order) error

	// SaveItem upserts a single line item of order. It fails with
	// domain.ErrConcurrentModification if the stored order is no longer at
	// order.Version, and does not bump the version itself.
	SaveItem(ctx context.Context, order *domain.Order, item *domain.LineItem) error
}

// OrderProcessor is a step of the order pipeline run on every load.
type OrderProcessor interface {
	Process(ctx context.Context, order *domain.Order) error
}
