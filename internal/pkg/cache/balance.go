package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

const (
	balanceKeyPrefix  = "balance:"
	DefaultBalanceTTL = 30 * time.Second
)

// BalanceCache keeps connected-account balances for a short time so that
// dashboard reloads do not hit the processor on every request. A nil client
// disables caching.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(accountID string) string {
	return balanceKeyPrefix + accountID
}

// Get returns the cached balance and whether it was found.
func (b *BalanceCache) Get(ctx context.Context, accountID string) (*processor.Balance, bool) {
	if b == nil || b.client == nil || accountID == "" {
		return nil, false
	}
	raw, err := b.client.Get(ctx, balanceKey(accountID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			fiberlog.Warnf("[Cache] balance lookup for %s failed: %v", accountID, err)
		}
		return nil, false
	}
	var bal processor.Balance
	if err := json.Unmarshal(raw, &bal); err != nil {
		return nil, false
	}
	return &bal, true
}

func (b *BalanceCache) Set(ctx context.Context, accountID string, bal *processor.Balance) {
	if b == nil || b.client == nil || accountID == "" || bal == nil {
		return
	}
	raw, err := json.Marshal(bal)
	if err != nil {
		return
	}
	if err := b.client.Set(ctx, balanceKey(accountID), raw, b.ttl).Err(); err != nil {
		fiberlog.Warnf("[Cache] balance store for %s failed: %v", accountID, err)
	}
}

// Invalidate drops the cached balance after a settlement or payout changed it.
func (b *BalanceCache) Invalidate(ctx context.Context, accountID string) {
	if b == nil || b.client == nil || accountID == "" {
		return
	}
	if err := b.client.Del(ctx, balanceKey(accountID)).Err(); err != nil {
		fiberlog.Warnf("[Cache] balance invalidate for %s failed: %v", accountID, err)
	}
}
