package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/textqueue/internal/guard"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultGuardTTL = 144 * time.Hour
	guardKeyPrefix  = "textqueue:import:"
)

var _ guard.ImportGuard = (*RedisImportGuard)(nil)

// RedisImportGuard claims export checksums with SET NX and a TTL.
type RedisImportGuard struct {
	client *goredis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisImportGuard(client *goredis.Client, ttl time.Duration) (*RedisImportGuard, error) {
	return newRedisImportGuard(client, ttl, time.Now)
}

func newRedisImportGuard(client *goredis.Client, ttl time.Duration, nowFn func() time.Time) (*RedisImportGuard, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &RedisImportGuard{
		client: client,
		ttl:    ttl,
		now:    nowFn,
	}, nil
}

func (g *RedisImportGuard) Acquire(ctx context.Context, checksum string) error {
	key, err := g.key(checksum)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	acquired, err := g.client.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to claim import checksum: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: checksum %s", guard.ErrAlreadyImported, checksum)
	}

	return nil
}

func (g *RedisImportGuard) Release(ctx context.Context, checksum string) error {
	key, err := g.key(checksum)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release import checksum: %w", err)
	}
	return nil
}

func (g *RedisImportGuard) key(checksum string) (string, error) {
	if g == nil || g.client == nil {
		return "", fmt.Errorf("import guard is not initialized")
	}

	normalized := strings.ToLower(strings.TrimSpace(checksum))
	if normalized == "" {
		return "", fmt.Errorf("checksum is required")
	}
	return guardKeyPrefix + normalized, nil
}
