package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ElizavetaP/bankapp/shared/models"
)

// BalanceCache keeps a Redis projection of a user's account balances so the
// list endpoint does not hit PostgreSQL on every poll. Cache misses and
// write errors are non-fatal; the database stays the source of truth.
type BalanceCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewBalanceCache(client *goredis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func key(login string) string {
	return "accounts:" + login
}

func (c *BalanceCache) Get(ctx context.Context, login string) ([]models.AccountView, bool) {
	data, err := c.client.Get(ctx, key(login)).Result()
	if err != nil {
		return nil, false
	}
	var views []models.AccountView
	if err := json.Unmarshal([]byte(data), &views); err != nil {
		return nil, false
	}
	return views, true
}

func (c *BalanceCache) Set(ctx context.Context, login string, views []models.AccountView) {
	data, err := json.Marshal(views)
	if err != nil {
		log.Printf("BalanceCache: marshal error for %s: %v", login, err)
		return
	}
	if err := c.client.Set(ctx, key(login), data, c.ttl).Err(); err != nil {
		log.Printf("BalanceCache: write error for %s: %v", login, err)
	}
}

// Invalidate drops the cached balances after a mutation; the next read
// repopulates from PostgreSQL.
func (c *BalanceCache) Invalidate(ctx context.Context, login string) {
	if err := c.client.Del(ctx, key(login)).Err(); err != nil {
		log.Printf("BalanceCache: delete error for %s: %v", login, err)
	}
}
