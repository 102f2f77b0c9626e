package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/adapter/currency"
	"github.com/rl1809/donation-checkout/internal/adapter/storage"
	"github.com/rl1809/donation-checkout/internal/config"
	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/core/service"
)

const totalRequests = 50

// contention fires concurrent checkout pane submissions at a single cart and
// reports how many were rejected by the optimistic version check.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := zap.NewNop()
	ctx := context.Background()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		panic(err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		panic(fmt.Errorf("ping mysql: %w", err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(fmt.Errorf("ping redis: %w", err))
	}
	defer rdb.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		panic(err)
	}
	redisAdapter := storage.NewRedisAdapter(rdb, cfg.DefaultCurrency)
	formatter := currency.NewFormatter(cfg.Locale)

	reconciler := service.NewDonationReconciler(mysqlAdapter, formatter, logger)
	synchronizer := service.NewCurrencySynchronizer(mysqlAdapter, redisAdapter, redisAdapter, formatter, logger)
	orders := service.NewOrderService(mysqlAdapter, logger, synchronizer)
	carts := service.NewCartService(mysqlAdapter, redisAdapter, redisAdapter, logger)
	pane := service.NewCheckoutPane(orders, reconciler, redisAdapter)

	sess := domain.Session{ID: "contention-" + uuid.NewString(), StoreID: cfg.StoreID}
	order, err := carts.GetOrCreateCart(ctx, domain.DefaultOrderType, sess)
	if err != nil {
		panic(err)
	}

	var successCount, conflictCount, errorCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			in := service.PaneInput{Donate: n%2 == 0, Amount: fmt.Sprintf("%d", 10+n)}
			_, err := pane.Submit(ctx, order.ID, in)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrConcurrentModification):
				conflictCount.Add(1)
			default:
				errorCount.Add(1)
				fmt.Printf("request %d: %v\n", n, err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	final, err := mysqlAdapter.FindByID(ctx, order.ID)
	if err != nil {
		panic(err)
	}
	donations := 0
	for _, item := range final.Items {
		if item.Kind == domain.ItemKindDonation {
			donations++
		}
	}

	fmt.Println("========== CONTENTION RESULTS ==========")
	fmt.Printf("Order:            %s\n", order.ID)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Conflicts:        %d\n", conflictCount.Load())
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Final Version:    %d\n", final.Version)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=========================================")

	fmt.Printf("Donation Items:   %d\n", donations)
	if donations <= 1 {
		fmt.Println("PASS: at most one donation line item")
	} else {
		fmt.Printf("FAIL: expected at most 1 donation line item, got %d\n", donations)
	}
	if errorCount.Load() == 0 {
		fmt.Println("PASS: every failure was a version conflict")
	} else {
		fmt.Println("FAIL: unexpected errors")
	}
}
