package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/donation-checkout/internal/core/domain"
)

// CurrencyContext identifies whose currency is being resolved.
type CurrencyContext struct {
	SessionID string
	StoreID   string
}

type CurrencyResolver interface {
	// ResolvedCurrencyCode returns the currency currently authoritative for the context
	ResolvedCurrencyCode(ctx context.Context, cc CurrencyContext) (string, error)
}

type CurrencySwitcher interface {
	SetSessionCurrency(ctx context.Context, sessionID, currencyCode string) error
}

type RefreshPolicy interface {
	// ShouldRefresh reports whether the order is due a currency refresh to resolvedCode
	ShouldRefresh(ctx context.Context, order *domain.Order, resolvedCode string) (bool, error)
}

type PriceFormatter interface {
	Format(amount decimal.Decimal, currencyCode string) (string, error)
	Symbol(currencyCode string) (string, error)
}
