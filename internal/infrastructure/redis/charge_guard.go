// Package redis keeps cross-instance charge markers in Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyChargeMarker is charge:order:{order_id} -> time the marker was taken.
const KeyChargeMarker = "charge:order:%s"

// New returns a client for addr. Commands are bounded by the given timeouts.
func New(addr, password string, db int, timeout time.Duration) *goredis.Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
}

// ChargeGuard takes a charge marker with SET NX so only one instance charges a given order.
type ChargeGuard struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

// NewChargeGuard builds a guard. ttl <= 0 keeps markers until released.
func NewChargeGuard(rdb goredis.Cmdable, ttl time.Duration) *ChargeGuard {
	if ttl < 0 {
		ttl = 0
	}
	return &ChargeGuard{rdb: rdb, ttl: ttl}
}

func (g *ChargeGuard) Acquire(ctx context.Context, orderID string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, fmt.Sprintf(KeyChargeMarker, orderID), time.Now().UTC().Format(time.RFC3339Nano), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("charge guard: acquire %s: %w", orderID, err)
	}
	return ok, nil
}

func (g *ChargeGuard) Release(ctx context.Context, orderID string) error {
	if err := g.rdb.Del(ctx, fmt.Sprintf(KeyChargeMarker, orderID)).Err(); err != nil {
		return fmt.Errorf("charge guard: release %s: %w", orderID, err)
	}
	return nil
}
