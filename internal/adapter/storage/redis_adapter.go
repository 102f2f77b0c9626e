package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/port"
)

const (
	currencyKeyPrefix = "currency:"
	refreshKeyPrefix  = "currency_refresh:"
	cartKeyPrefix     = "cart:"
	sessionTTL        = 30 * 24 * time.Hour
)

// markRefreshScript records the currency an order was last refreshed to and
// returns 1 only when that changes, so each currency switch refreshes once.
var markRefreshScript = redis.NewScript(`
local key = KEYS[1]
local code = ARGV[1]
local ttl = tonumber(ARGV[2])

local previous = redis.call('GET', key)
if previous == code then
	return 0
end

redis.call('SET', key, code, 'EX', ttl)
return 1
`)

type RedisAdapter struct {
	client          *redis.Client
	defaultCurrency string
	storeCurrencies map[string]string
	refreshTTL      time.Duration
}

type RedisOption func(*RedisAdapter)

// WithStoreCurrency sets the default currency of a store.
func WithStoreCurrency(storeID, currencyCode string) RedisOption {
	return func(r *RedisAdapter) {
		r.storeCurrencies[storeID] = currencyCode
	}
}

func WithRefreshTTL(ttl time.Duration) RedisOption {
	return func(r *RedisAdapter) {
		r.refreshTTL = ttl
	}
}

func NewRedisAdapter(client *redis.Client, defaultCurrency string, opts ...RedisOption) *RedisAdapter {
	r := &RedisAdapter{
		client:          client,
		defaultCurrency: defaultCurrency,
		storeCurrencies: make(map[string]string),
		refreshTTL:      24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvedCurrencyCode returns the session's chosen currency, falling back to
// the store default and then the global default.
func (r *RedisAdapter) ResolvedCurrencyCode(ctx context.Context, cc port.CurrencyContext) (string, error) {
	if cc.SessionID != "" {
		code, err := r.client.Get(ctx, currencyKeyPrefix+cc.SessionID).Result()
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, redis.Nil) {
			return "", err
		}
	}

	if code, ok := r.storeCurrencies[cc.StoreID]; ok {
		return code, nil
	}
	return r.defaultCurrency, nil
}

func (r *RedisAdapter) SetSessionCurrency(ctx context.Context, sessionID, currencyCode string) error {
	return r.client.Set(ctx, currencyKeyPrefix+sessionID, currencyCode, sessionTTL).Err()
}

func (r *RedisAdapter) ShouldRefresh(ctx context.Context, order *domain.Order, resolvedCode string) (bool, error) {
	key := refreshKeyPrefix + order.ID

	result, err := markRefreshScript.Run(ctx, r.client, []string{key}, resolvedCode, int(r.refreshTTL.Seconds())).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (r *RedisAdapter) GetCartID(ctx context.Context, key string) (string, error) {
	id, err := r.client.Get(ctx, cartKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisAdapter) SetCartID(ctx context.Context, key string, orderID string) error {
	return r.client.Set(ctx, cartKeyPrefix+key, orderID, sessionTTL).Err()
}
