package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

// DonationReconciler applies a donor's decision to an order. It is the only
// code path that creates, updates or removes donation items.
type DonationReconciler struct {
	orders    port.OrderRepository
	formatter port.PriceFormatter
	logger    *zap.Logger
}

func NewDonationReconciler(orders port.OrderRepository, formatter port.PriceFormatter, logger *zap.Logger) *DonationReconciler {
	return &DonationReconciler{
		orders:    orders,
		formatter: formatter,
		logger:    logger,
	}
}

// Reconcile creates, updates or removes the order's donation item so that it
// matches the decision. Validation failures leave the order untouched.
func (r *DonationReconciler) Reconcile(ctx context.Context, order *domain.Order, decision domain.Decision) (*domain.Order, error) {
	amount, err := decision.Validate()
	if err != nil {
		return order, err
	}

	item := order.DonationItem()
	switch {
	case decision.WantsDonation && item == nil:
		err = r.create(ctx, order, amount, decision)
	case decision.WantsDonation:
		err = r.update(ctx, order, item, amount, decision)
	case item != nil:
		err = r.remove(ctx, order, item)
	}
	if err != nil {
		return order, err
	}

	return order, nil
}

func (r *DonationReconciler) create(ctx context.Context, order *domain.Order, amount decimal.Decimal, decision domain.Decision) error {
	title, err := donationTitle(r.formatter, amount, decision.CurrencyCode)
	if err != nil {
		return err
	}

	now := time.Now()
	item := &domain.LineItem{
		ID:        uuid.NewString(),
		Kind:      domain.ItemKindDonation,
		Title:     title,
		UnitPrice: domain.Price{Number: amount, CurrencyCode: decision.CurrencyCode},
		Quantity:  1,
		Memorial:  decision.Memorial.Normalize(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.AddItem(item)

	// SaveOrder writes the new item in the same version-checked transaction.
	if err := r.orders.SaveOrder(ctx, order); err != nil {
		order.RemoveItem(item.ID)
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}

	r.logger.Info("donation added",
		zap.String("order_id", order.ID),
		zap.String("item_id", item.ID),
		zap.String("amount", amount.String()),
		zap.String("currency", decision.CurrencyCode),
	)
	return nil
}

func (r *DonationReconciler) update(ctx context.Context, order *domain.Order, item *domain.LineItem, amount decimal.Decimal, decision domain.Decision) error {
	title, err := donationTitle(r.formatter, amount, decision.CurrencyCode)
	if err != nil {
		return err
	}

	item.Title = title
	item.UnitPrice = domain.Price{Number: amount, CurrencyCode: decision.CurrencyCode}
	item.Memorial = decision.Memorial.Normalize()
	item.UpdatedAt = time.Now()

	if err := r.orders.SaveItem(ctx, order, item); err != nil {
		return fmt.Errorf("save donation item: %w", err)
	}

	r.logger.Info("donation updated",
		zap.String("order_id", item.OrderID),
		zap.String("item_id", item.ID),
		zap.String("amount", amount.String()),
		zap.String("currency", decision.CurrencyCode),
	)
	return nil
}

func (r *DonationReconciler) remove(ctx context.Context, order *domain.Order, item *domain.LineItem) error {
	order.RemoveItem(item.ID)

	if err := r.orders.SaveOrder(ctx, order); err != nil {
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}

	r.logger.Info("donation removed",
		zap.String("order_id", order.ID),
		zap.String("item_id", item.ID),
	)
	return nil
}

func donationTitle(formatter port.PriceFormatter, amount decimal.Decimal, currencyCode string) (string, error) {
	label, err := formatter.Format(amount, currencyCode)
	if err != nil {
		return "", fmt.Errorf("format donation amount: %w", err)
	}
	return label + " donation", nil
}
