package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

type PaneInput struct {
	Donate   bool
	Amount   string
	Memorial domain.Memorial
}

// PaneDefaults prefill the checkout pane.
type PaneDefaults struct {
	Donate   bool
	Amount   decimal.Decimal
	Memorial domain.Memorial
}

// CheckoutPane lets the donor adjust or drop the donation during checkout.
type CheckoutPane struct {
	orders     *OrderService
	reconciler *DonationReconciler
	resolver   port.CurrencyResolver
}

func NewCheckoutPane(orders *OrderService, reconciler *DonationReconciler, resolver port.CurrencyResolver) *CheckoutPane {
	return &CheckoutPane{
		orders:     orders,
		reconciler: reconciler,
		resolver:   resolver,
	}
}

// Visible reports whether the order carries a donation.
func (p *CheckoutPane) Visible(order *domain.Order) bool {
	return order.DonationItem() != nil
}

func (p *CheckoutPane) Summary(order *domain.Order) string {
	if item := order.DonationItem(); item != nil {
		return item.Title
	}
	return ""
}

func (p *CheckoutPane) Defaults(order *domain.Order) PaneDefaults {
	item := order.DonationItem()
	if item == nil {
		return PaneDefaults{Amount: domain.SuggestedAmounts(domain.FrequencyOneTime)[0]}
	}
	return PaneDefaults{
		Donate:   true,
		Amount:   item.UnitPrice.Number,
		Memorial: item.Memorial,
	}
}

func (p *CheckoutPane) Submit(ctx context.Context, orderID string, in PaneInput) (*domain.Order, error) {
	order, err := p.orders.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	code, err := p.resolver.ResolvedCurrencyCode(ctx, port.CurrencyContext{
		SessionID: order.SessionID,
		StoreID:   order.StoreID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve currency: %w", err)
	}

	return p.reconciler.Reconcile(ctx, order, domain.Decision{
		WantsDonation: in.Donate,
		Amount:        in.Amount,
		CurrencyCode:  code,
		Memorial:      in.Memorial,
	})
}
