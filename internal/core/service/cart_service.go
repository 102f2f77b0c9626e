package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

type CartService struct {
	orders   port.OrderRepository
	index    port.CartIndex
	resolver port.CurrencyResolver
	logger   *zap.Logger
}

func NewCartService(orders port.OrderRepository, index port.CartIndex, resolver port.CurrencyResolver, logger *zap.Logger) *CartService {
	return &CartService{
		orders:   orders,
		index:    index,
		resolver: resolver,
		logger:   logger,
	}
}

// GetOrCreateCart returns the session's open cart of orderType, creating one
// in the session's resolved currency when none exists.
func (s *CartService) GetOrCreateCart(ctx context.Context, orderType string, sess domain.Session) (*domain.Order, error) {
	key := cartKey(orderType, sess)

	orderID, err := s.index.GetCartID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup cart: %w", err)
	}
	if orderID != "" {
		order, err := s.orders.FindByID(ctx, orderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrOrderNotFound) {
			return nil, fmt.Errorf("load cart %s: %w", orderID, err)
		}
		s.logger.Warn("cart index points at missing order", zap.String("order_id", orderID))
	}

	code, err := s.resolver.ResolvedCurrencyCode(ctx, port.CurrencyContext{SessionID: sess.ID, StoreID: sess.StoreID})
	if err != nil {
		return nil, fmt.Errorf("resolve currency: %w", err)
	}

	now := time.Now()
	order := &domain.Order{
		ID:           uuid.NewString(),
		Type:         orderType,
		StoreID:      sess.StoreID,
		SessionID:    sess.ID,
		CurrencyCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	if err := s.index.SetCartID(ctx, key, order.ID); err != nil {
		return nil, fmt.Errorf("index cart: %w", err)
	}

	s.logger.Info("cart created",
		zap.String("order_id", order.ID),
		zap.String("session_id", sess.ID),
		zap.String("currency", code),
	)
	return order, nil
}

func cartKey(orderType string, sess domain.Session) string {
	return fmt.Sprintf("%s:%s:%s", sess.StoreID, sess.ID, orderType)
}
