package handler

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/core/service"
	"github.com/rl1809/donation-checkout/internal/port"
)

// memStore fakes every storage port behind the handlers.
type memStore struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	carts     map[string]string
	sessions  map[string]string
	refreshed map[string]string
	conflict  bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[string]*domain.Order),
		carts:     make(map[string]string),
		sessions:  make(map[string]string),
		refreshed: make(map[string]string),
	}
}

func clone(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = nil
	for _, item := range o.Items {
		ic := *item
		cp.Items = append(cp.Items, &ic)
	}
	return &cp
}

func (m *memStore) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func (m *memStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = clone(order)
	return nil
}

func (m *memStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if m.conflict || stored.Version != order.Version {
		return domain.ErrConcurrentModification
	}
	order.Version++
	m.orders[order.ID] = clone(order)
	return nil
}

func (m *memStore) SaveItem(ctx context.Context, order *domain.Order, item *domain.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if m.conflict || o.Version != order.Version {
		return domain.ErrConcurrentModification
	}
	cp := *item
	for i, existing := range o.Items {
		if existing.ID == item.ID {
			o.Items[i] = &cp
			return nil
		}
	}
	o.Items = append(o.Items, &cp)
	return nil
}

func (m *memStore) ResolvedCurrencyCode(ctx context.Context, cc port.CurrencyContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code, ok := m.sessions[cc.SessionID]; ok {
		return code, nil
	}
	return "USD", nil
}

func (m *memStore) SetSessionCurrency(ctx context.Context, sessionID, currencyCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = currencyCode
	return nil
}

func (m *memStore) ShouldRefresh(ctx context.Context, order *domain.Order, resolvedCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshed[order.ID] == resolvedCode {
		return false, nil
	}
	m.refreshed[order.ID] = resolvedCode
	return true, nil
}

func (m *memStore) GetCartID(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[key], nil
}

func (m *memStore) SetCartID(ctx context.Context, key string, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[key] = orderID
	return nil
}

type fakeFormatter struct{}

func (fakeFormatter) Format(amount decimal.Decimal, currencyCode string) (string, error) {
	return currencyCode + " " + amount.StringFixed(2), nil
}

func (fakeFormatter) Symbol(currencyCode string) (string, error) {
	return currencyCode + " ", nil
}

func newTestServices(store *memStore) Services {
	logger := zap.NewNop()
	reconciler := service.NewDonationReconciler(store, fakeFormatter{}, logger)
	sync := service.NewCurrencySynchronizer(store, store, store, fakeFormatter{}, logger)
	orders := service.NewOrderService(store, logger, sync)
	carts := service.NewCartService(store, store, store, logger)
	form := service.NewDonationForm(carts, reconciler, store, fakeFormatter{}, logger)

	return Services{
		Form:       form,
		Mini:       service.NewMiniDonationForm(form),
		Pane:       service.NewCheckoutPane(orders, reconciler, store),
		Orders:     orders,
		Currencies: store,
		StoreID:    "test-store",
	}
}
