package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-signal-engine/pkg/common"

	"github.com/redis/go-redis/v9"
)

// ErrLeaseConflict is returned when another worker already holds the lease.
var ErrLeaseConflict = errors.New("lease held by another worker")

// LeaseRepository implements worker isolation on Redis. A lease is a SETNX
// key carrying the holder's id with a TTL; a crashed worker's lease simply
// expires. Symbol leases serialize work on one symbol. Each market has a
// single pipeline lease whose value records which pipeline kind holds it, so
// a specialized pipeline and the generic per-symbol path can never run a
// market concurrently.
type LeaseRepository interface {
	AcquireSymbolLease(ctx context.Context, market, ticker, holder string, ttl time.Duration) error
	AcquirePipelineLease(ctx context.Context, market, kind, holder string, ttl time.Duration) error
	ExtendLease(ctx context.Context, key, value string, ttl time.Duration) error
	ReleaseSymbolLease(ctx context.Context, market, ticker, holder string) error
	ReleasePipelineLease(ctx context.Context, market, kind, holder string) error
	ReleaseMarketLeases(ctx context.Context, market string) (int64, error)
}

type leaseRepository struct {
	client *redis.Client
}

func NewLeaseRepository(client *redis.Client) LeaseRepository {
	return &leaseRepository{client: client}
}

func symbolLeaseKey(market, ticker string) string {
	return fmt.Sprintf("%s%s.%s", common.RedisKeyLeaseSymbol, market, ticker)
}

func pipelineLeaseKey(market string) string {
	return common.RedisKeyLeasePipeline + market
}

func pipelineLeaseValue(kind, holder string) string {
	return fmt.Sprintf("%s/%s", kind, holder)
}

func (r *leaseRepository) AcquireSymbolLease(ctx context.Context, market, ticker, holder string, ttl time.Duration) error {
	return r.acquire(ctx, symbolLeaseKey(market, ticker), holder, ttl)
}

func (r *leaseRepository) AcquirePipelineLease(ctx context.Context, market, kind, holder string, ttl time.Duration) error {
	return r.acquire(ctx, pipelineLeaseKey(market), pipelineLeaseValue(kind, holder), ttl)
}

func (r *leaseRepository) acquire(ctx context.Context, key, value string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if ok {
		return nil
	}
	// Re-acquiring a lease we already hold refreshes its TTL.
	current, err := r.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("inspect lease %s: %w", key, err)
	}
	if current == value {
		return r.client.Expire(ctx, key, ttl).Err()
	}
	return fmt.Errorf("lease %s: %w", key, ErrLeaseConflict)
}

// ExtendLease refreshes the TTL only while value still owns the key.
func (r *leaseRepository) ExtendLease(ctx context.Context, key, value string, ttl time.Duration) error {
	current, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && current != value) {
		return fmt.Errorf("lease %s: %w", key, ErrLeaseConflict)
	}
	if err != nil {
		return fmt.Errorf("inspect lease %s: %w", key, err)
	}
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *leaseRepository) ReleaseSymbolLease(ctx context.Context, market, ticker, holder string) error {
	return r.release(ctx, symbolLeaseKey(market, ticker), holder)
}

func (r *leaseRepository) ReleasePipelineLease(ctx context.Context, market, kind, holder string) error {
	return r.release(ctx, pipelineLeaseKey(market), pipelineLeaseValue(kind, holder))
}

func (r *leaseRepository) release(ctx context.Context, key, value string) error {
	current, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect lease %s: %w", key, err)
	}
	if current != value {
		// Another worker took over after our TTL lapsed; leave theirs alone.
		return nil
	}
	return r.client.Del(ctx, key).Err()
}

// ReleaseMarketLeases drops every symbol lease of a market, used when the
// market closes and in-flight realtime work is abandoned.
func (r *leaseRepository) ReleaseMarketLeases(ctx context.Context, market string) (int64, error) {
	var released int64
	pattern := fmt.Sprintf("%s%s.*", common.RedisKeyLeaseSymbol, market)
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return released, err
		}
		released++
	}
	return released, iter.Err()
}
