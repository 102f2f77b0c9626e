package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/donation-checkout/internal/core/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id            VARCHAR(36)  NOT NULL PRIMARY KEY,
		type          VARCHAR(32)  NOT NULL,
		store_id      VARCHAR(64)  NOT NULL,
		session_id    VARCHAR(128) NOT NULL,
		currency_code CHAR(3)      NOT NULL,
		version       INT          NOT NULL DEFAULT 0,
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id             VARCHAR(36)    NOT NULL PRIMARY KEY,
		order_id       VARCHAR(36)    NOT NULL,
		kind           VARCHAR(32)    NOT NULL,
		title          VARCHAR(255)   NOT NULL,
		unit_price     DECIMAL(19, 6) NOT NULL,
		currency_code  CHAR(3)        NOT NULL,
		quantity       INT            NOT NULL,
		in_memory      TINYINT(1)     NOT NULL DEFAULT 0,
		in_memory_name VARCHAR(255)   NOT NULL DEFAULT '',
		in_memory_card TINYINT(1)     NOT NULL DEFAULT 0,
		created_at     DATETIME(6)    NOT NULL,
		updated_at     DATETIME(6)    NOT NULL,
		INDEX idx_order_items_order (order_id, created_at)
	)`,
}

const upsertItemSQL = `
	INSERT INTO order_items (id, order_id, kind, title, unit_price, currency_code, quantity,
		in_memory, in_memory_name, in_memory_card, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		title = VALUES(title),
		unit_price = VALUES(unit_price),
		currency_code = VALUES(currency_code),
		quantity = VALUES(quantity),
		in_memory = VALUES(in_memory),
		in_memory_name = VALUES(in_memory_name),
		in_memory_card = VALUES(in_memory_card),
		updated_at = VALUES(updated_at)`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, type, store_id, session_id, currency_code, version, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.Type, &o.StoreID, &o.SessionID, &o.CurrencyCode, &o.Version, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, kind, title, unit_price, currency_code, quantity,
			in_memory, in_memory_name, in_memory_card, created_at, updated_at
		FROM order_items WHERE order_id = ?
		ORDER BY created_at, id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.Kind, &item.Title,
			&item.UnitPrice.Number, &item.UnitPrice.CurrencyCode, &item.Quantity,
			&item.Memorial.InMemory, &item.Memorial.Name, &item.Memorial.CardRequested,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &o, nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (id, type, store_id, session_id, currency_code, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		order.ID, order.Type, order.StoreID, order.SessionID, order.CurrencyCode,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.Version = 0
	return nil
}

// SaveOrder bumps the order version, drops item rows no longer attached and
// upserts the rest, all in one transaction.
func (m *MySQLAdapter) SaveOrder(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET currency_code = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		order.CurrencyCode, now, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, order.ID).Scan(&count); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if count == 0 {
			return domain.ErrOrderNotFound
		}
		return domain.ErrConcurrentModification
	}

	if err := deleteDetachedItems(ctx, tx, order); err != nil {
		return err
	}
	for _, item := range order.Items {
		if err := upsertItem(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	order.Version++
	order.UpdatedAt = now
	return nil
}

// SaveItem upserts item while holding the order row at order.Version, so a
// concurrent save or remove cannot interleave with it.
func (m *MySQLAdapter) SaveItem(ctx context.Context, order *domain.Order, item *domain.LineItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRowContext(ctx, `SELECT version FROM orders WHERE id = ? FOR UPDATE`, order.ID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if version != order.Version {
		return domain.ErrConcurrentModification
	}

	if err := upsertItem(ctx, tx, item); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func deleteDetachedItems(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `DELETE FROM order_items WHERE order_id = ?`
	args := []any{order.ID}
	if len(order.Items) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(order.Items)), ",")
		query += ` AND id NOT IN (` + placeholders + `)`
		for _, item := range order.Items {
			args = append(args, item.ID)
		}
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete detached items: %w", err)
	}
	return nil
}

func upsertItem(ctx context.Context, tx *sql.Tx, item *domain.LineItem) error {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := tx.ExecContext(ctx, upsertItemSQL,
		item.ID, item.OrderID, item.Kind, item.Title,
		item.UnitPrice.Number, item.UnitPrice.CurrencyCode, item.Quantity,
		item.Memorial.InMemory, item.Memorial.Name, item.Memorial.CardRequested,
		createdAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", item.ID, err)
	}
	return nil
}
