package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/rl1809/donation-checkout/internal/adapter/currency"
	"github.com/rl1809/donation-checkout/internal/adapter/storage"
	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *storage.RedisAdapter
	db      *storage.MySQLAdapter
	form    *service.DonationForm
	mini    *service.MiniDonationForm
	pane    *service.CheckoutPane
	orders  *service.OrderService
	format  *currency.Formatter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/donations?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	redisAdapter := storage.NewRedisAdapter(rdb, "USD")
	formatter := currency.NewFormatter(language.English)
	logger := zap.NewNop()

	reconciler := service.NewDonationReconciler(mysqlAdapter, formatter, logger)
	sync := service.NewCurrencySynchronizer(mysqlAdapter, redisAdapter, redisAdapter, formatter, logger)
	orders := service.NewOrderService(mysqlAdapter, logger, sync)
	carts := service.NewCartService(mysqlAdapter, redisAdapter, redisAdapter, logger)
	form := service.NewDonationForm(carts, reconciler, redisAdapter, formatter, logger)

	return &testEnv{
		redis:  rdb,
		mysql:  db,
		cache:  redisAdapter,
		db:     mysqlAdapter,
		form:   form,
		mini:   service.NewMiniDonationForm(form),
		pane:   service.NewCheckoutPane(orders, reconciler, redisAdapter),
		orders: orders,
		format: formatter,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func TestIntegration_DonationLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	sess := domain.Session{ID: "it-" + uuid.NewString(), StoreID: "it-store"}

	out, err := env.form.Submit(ctx, sess, service.DonationFormInput{
		Frequency: "onetime",
		Amount:    "50",
		Memorial:  domain.Memorial{InMemory: true, Name: "Grace", CardRequested: true},
	})
	if err != nil {
		t.Fatalf("form submit: %v", err)
	}
	defer env.mysql.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, out.OrderID)
	defer env.mysql.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, out.OrderID)

	// Mini form on the same session updates the same donation
	again, err := env.mini.Submit(ctx, sess, "onetime", "75")
	if err != nil {
		t.Fatalf("mini submit: %v", err)
	}
	if again.OrderID != out.OrderID {
		t.Fatalf("expected same cart, got %s and %s", out.OrderID, again.OrderID)
	}

	var donations int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = ? AND kind = 'donation'`, out.OrderID).Scan(&donations)
	if donations != 1 {
		t.Fatalf("expected 1 donation row, got %d", donations)
	}

	// Switch currency and load through the pipeline
	if err := env.cache.SetSessionCurrency(ctx, sess.ID, "EUR"); err != nil {
		t.Fatalf("switch currency: %v", err)
	}
	order, err := env.orders.Load(ctx, out.OrderID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	item := order.DonationItem()
	if item.UnitPrice.CurrencyCode != "EUR" || !item.UnitPrice.Number.Equal(decimal.NewFromInt(75)) {
		t.Errorf("expected EUR 75, got %s %s", item.UnitPrice.CurrencyCode, item.UnitPrice.Number)
	}
	if total := order.TotalPrice(); total.CurrencyCode != "EUR" {
		t.Errorf("expected order total in EUR, got %s", total.CurrencyCode)
	}
	label, _ := env.format.Format(decimal.NewFromInt(75), "EUR")
	if item.Title != label+" donation" {
		t.Errorf("expected %q, got %q", label+" donation", item.Title)
	}

	// Second load does not refresh again
	version := order.Version
	order, err = env.orders.Load(ctx, out.OrderID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if order.Version != version {
		t.Errorf("expected version %d to hold, got %d", version, order.Version)
	}

	// Opt out at checkout
	order, err = env.pane.Submit(ctx, out.OrderID, service.PaneInput{Donate: false})
	if err != nil {
		t.Fatalf("pane submit: %v", err)
	}
	if order.DonationItem() != nil {
		t.Error("expected donation removed")
	}
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = ?`, out.OrderID).Scan(&donations)
	if donations != 0 {
		t.Errorf("expected no rows, got %d", donations)
	}
}

func TestIntegration_InvalidAmountLeavesNoCart(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	sess := domain.Session{ID: "it-" + uuid.NewString(), StoreID: "it-store"}

	_, err := env.mini.Submit(ctx, sess, "onetime", "abc")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	var count int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE session_id = ?`, sess.ID).Scan(&count)
	if count != 0 {
		t.Errorf("expected no cart, got %d", count)
	}
}
