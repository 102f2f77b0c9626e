package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

// CurrencySynchronizer relabels the donation item and the order total when the
// order's currency falls behind the resolved one. The amount is kept as is; no
// exchange rate is applied.
type CurrencySynchronizer struct {
	orders    port.OrderRepository
	resolver  port.CurrencyResolver
	policy    port.RefreshPolicy
	formatter port.PriceFormatter
	logger    *zap.Logger
}

func NewCurrencySynchronizer(
	orders port.OrderRepository,
	resolver port.CurrencyResolver,
	policy port.RefreshPolicy,
	formatter port.PriceFormatter,
	logger *zap.Logger,
) *CurrencySynchronizer {
	return &CurrencySynchronizer{
		orders:    orders,
		resolver:  resolver,
		policy:    policy,
		formatter: formatter,
		logger:    logger,
	}
}

func (s *CurrencySynchronizer) Synchronize(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := s.Process(ctx, order); err != nil {
		return order, err
	}
	return order, nil
}

// Process implements port.OrderProcessor.
func (s *CurrencySynchronizer) Process(ctx context.Context, order *domain.Order) error {
	item := order.DonationItem()
	if item == nil {
		return nil
	}

	resolved, err := s.resolver.ResolvedCurrencyCode(ctx, port.CurrencyContext{
		SessionID: order.SessionID,
		StoreID:   order.StoreID,
	})
	if err != nil {
		return fmt.Errorf("resolve currency: %w", err)
	}

	if order.TotalPrice().CurrencyCode == resolved {
		return nil
	}

	due, err := s.policy.ShouldRefresh(ctx, order, resolved)
	if err != nil {
		return fmt.Errorf("refresh policy: %w", err)
	}
	if state := domain.StateOf(order, resolved, due); state != domain.DonationStateStale {
		s.logger.Debug("donation currency left as is",
			zap.String("order_id", order.ID),
			zap.String("state", string(state)),
			zap.String("resolved", resolved),
		)
		return nil
	}

	title, err := donationTitle(s.formatter, item.UnitPrice.Number, resolved)
	if err != nil {
		return err
	}

	previous := item.UnitPrice.CurrencyCode
	item.UnitPrice = domain.Price{Number: item.UnitPrice.Number, CurrencyCode: resolved}
	item.Title = title
	item.UpdatedAt = time.Now()
	order.CurrencyCode = resolved

	if err := s.orders.SaveItem(ctx, order, item); err != nil {
		return fmt.Errorf("save donation item: %w", err)
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}

	s.logger.Info("donation currency refreshed",
		zap.String("order_id", order.ID),
		zap.String("item_id", item.ID),
		zap.String("from", previous),
		zap.String("to", resolved),
		zap.String("state", string(domain.StateOf(order, resolved, false))),
	)
	return nil
}
