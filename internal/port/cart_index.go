package port

import "context"

type CartIndex interface {
	// GetCartID returns the order ID of the cart stored under key, or "" if none
	GetCartID(ctx context.Context, key string) (string, error)

	// SetCartID records orderID as the cart for key
	SetCartID(ctx context.Context, key string, orderID string) error
}
