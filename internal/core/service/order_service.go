package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

// OrderService loads orders through the processing pipeline so every reader
// sees an order that has been refreshed by the registered processors.
type OrderService struct {
	orders     port.OrderRepository
	processors []port.OrderProcessor
	logger     *zap.Logger
}

func NewOrderService(orders port.OrderRepository, logger *zap.Logger, processors ...port.OrderProcessor) *OrderService {
	return &OrderService{
		orders:     orders,
		processors: processors,
		logger:     logger,
	}
}

func (s *OrderService) Load(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.Process(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Process runs the pipeline against an order already in hand.
func (s *OrderService) Process(ctx context.Context, order *domain.Order) error {
	for _, p := range s.processors {
		if err := p.Process(ctx, order); err != nil {
			s.logger.Warn("order processing failed", zap.String("order_id", order.ID), zap.Error(err))
			return fmt.Errorf("process order %s: %w", order.ID, err)
		}
	}
	return nil
}
