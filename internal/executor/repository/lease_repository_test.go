package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseKeyFormats(t *testing.T) {
	assert.Equal(t, "lease.us.AAPL", symbolLeaseKey("us", "AAPL"))

	// Every pipeline kind of a market contends for the same key; the kind
	// lives in the value, so generic and macd-multi exclude each other.
	assert.Equal(t, "lease.pipeline.vn", pipelineLeaseKey("vn"))
	assert.Equal(t, "macd-multi/worker-1", pipelineLeaseValue("macd-multi", "worker-1"))
}

// leaseTestClient returns a client against TEST_REDIS_ADDR or skips.
func leaseTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestAcquireSymbolLeaseSingleWinner(t *testing.T) {
	client := leaseTestClient(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-1", time.Minute))

	err := repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-2", time.Minute)
	assert.True(t, errors.Is(err, ErrLeaseConflict))

	// The holder re-acquiring is a refresh, not a conflict.
	assert.NoError(t, repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-1", time.Minute))

	// A different symbol is an independent lease.
	assert.NoError(t, repo.AcquireSymbolLease(ctx, "us", "MSFT", "worker-2", time.Minute))
}

func TestReleaseLeaveForeignLeaseAlone(t *testing.T) {
	client := leaseTestClient(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-1", time.Minute))
	require.NoError(t, repo.ReleaseSymbolLease(ctx, "us", "AAPL", "worker-2"))

	// worker-1 still holds it, so worker-2 cannot take it.
	err := repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-2", time.Minute)
	assert.True(t, errors.Is(err, ErrLeaseConflict))

	require.NoError(t, repo.ReleaseSymbolLease(ctx, "us", "AAPL", "worker-1"))
	assert.NoError(t, repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-2", time.Minute))
}

func TestAcquirePipelineLeaseExcludesOtherKinds(t *testing.T) {
	client := leaseTestClient(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.AcquirePipelineLease(ctx, "us", "macd-multi", "worker-1", time.Minute))

	// The generic path must wait while a specialized pipeline holds the
	// market, whoever the worker is.
	err := repo.AcquirePipelineLease(ctx, "us", "generic", "worker-1", time.Minute)
	assert.True(t, errors.Is(err, ErrLeaseConflict))
	err = repo.AcquirePipelineLease(ctx, "us", "generic", "worker-2", time.Minute)
	assert.True(t, errors.Is(err, ErrLeaseConflict))

	// Same kind and holder refreshes; another market is independent.
	assert.NoError(t, repo.AcquirePipelineLease(ctx, "us", "macd-multi", "worker-1", time.Minute))
	assert.NoError(t, repo.AcquirePipelineLease(ctx, "vn", "generic", "worker-2", time.Minute))

	require.NoError(t, repo.ReleasePipelineLease(ctx, "us", "macd-multi", "worker-1"))
	assert.NoError(t, repo.AcquirePipelineLease(ctx, "us", "generic", "worker-2", time.Minute))
}

func TestExtendLeaseRequiresOwnership(t *testing.T) {
	client := leaseTestClient(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.AcquirePipelineLease(ctx, "us", "macd-multi", "worker-1", time.Minute))

	err := repo.ExtendLease(ctx, pipelineLeaseKey("us"), pipelineLeaseValue("macd-multi", "worker-2"), time.Minute)
	assert.True(t, errors.Is(err, ErrLeaseConflict))
	assert.NoError(t, repo.ExtendLease(ctx, pipelineLeaseKey("us"), pipelineLeaseValue("macd-multi", "worker-1"), time.Minute))
}

func TestReleaseMarketLeases(t *testing.T) {
	client := leaseTestClient(t)
	repo := NewLeaseRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-1", time.Minute))
	require.NoError(t, repo.AcquireSymbolLease(ctx, "us", "MSFT", "worker-1", time.Minute))
	require.NoError(t, repo.AcquireSymbolLease(ctx, "vn", "VCB", "worker-1", time.Minute))

	released, err := repo.ReleaseMarketLeases(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	// The other market's lease survives.
	err = repo.AcquireSymbolLease(ctx, "vn", "VCB", "worker-2", time.Minute)
	assert.True(t, errors.Is(err, ErrLeaseConflict))
	assert.NoError(t, repo.AcquireSymbolLease(ctx, "us", "AAPL", "worker-2", time.Minute))
}
