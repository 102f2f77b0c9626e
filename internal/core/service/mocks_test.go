package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

// Mock OrderRepository. Orders are stored as copies so the version guard
// behaves like the database one.
type mockOrderRepo struct {
	mu             sync.Mutex
	orders         map[string]*domain.Order
	createCalls    int
	saveOrderCalls int
	saveItemCalls  int
	saveErr        error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[string]*domain.Order),
	}
}

func (m *mockOrderRepo) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *mockOrderRepo) SaveOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveOrderCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != order.Version {
		return domain.ErrConcurrentModification
	}
	order.Version++
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

// SaveItem writes the item straight into the stored order, like the row
// upsert it stands in for, once the version matches.
func (m *mockOrderRepo) SaveItem(ctx context.Context, order *domain.Order, item *domain.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveItemCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != order.Version {
		return domain.ErrConcurrentModification
	}

	cp := *item
	for i, existing := range stored.Items {
		if existing.ID == item.ID {
			stored.Items[i] = &cp
			return nil
		}
	}
	stored.Items = append(stored.Items, &cp)
	return nil
}

func (m *mockOrderRepo) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveOrderCalls + m.saveItemCalls
}

func isValidationError(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = make([]*domain.LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		ic := *item
		cp.Items = append(cp.Items, &ic)
	}
	return &cp
}

// Mock CurrencyResolver
type mockResolver struct {
	mu       sync.Mutex
	fallback string
	sessions map[string]string
	calls    int
}

func newMockResolver(fallback string) *mockResolver {
	return &mockResolver{fallback: fallback, sessions: make(map[string]string)}
}

func (m *mockResolver) ResolvedCurrencyCode(ctx context.Context, cc port.CurrencyContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if code, ok := m.sessions[cc.SessionID]; ok {
		return code, nil
	}
	return m.fallback, nil
}

func (m *mockResolver) set(sessionID, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = code
}

// Mock RefreshPolicy that answers true once per (order, currency) switch.
type mockPolicy struct {
	mu    sync.Mutex
	last  map[string]string
	calls int
	err   error
}

func newMockPolicy() *mockPolicy {
	return &mockPolicy{last: make(map[string]string)}
}

func (m *mockPolicy) ShouldRefresh(ctx context.Context, order *domain.Order, resolvedCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return false, m.err
	}
	if m.last[order.ID] == resolvedCode {
		return false, nil
	}
	m.last[order.ID] = resolvedCode
	return true, nil
}

// Mock PriceFormatter
type mockFormatter struct{}

var errUnknownCurrency = errors.New("unknown currency")

func (mockFormatter) Format(amount decimal.Decimal, currencyCode string) (string, error) {
	symbol, err := mockFormatter{}.Symbol(currencyCode)
	if err != nil {
		return "", err
	}
	return symbol + amount.StringFixed(2), nil
}

func (mockFormatter) Symbol(currencyCode string) (string, error) {
	switch currencyCode {
	case "USD":
		return "$", nil
	case "EUR":
		return "€", nil
	case "GBP":
		return "£", nil
	}
	return "", errUnknownCurrency
}

// Mock CartIndex
type mockCartIndex struct {
	mu    sync.Mutex
	carts map[string]string
}

func newMockCartIndex() *mockCartIndex {
	return &mockCartIndex{carts: make(map[string]string)}
}

func (m *mockCartIndex) GetCartID(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[key], nil
}

func (m *mockCartIndex) SetCartID(ctx context.Context, key string, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[key] = orderID
	return nil
}
