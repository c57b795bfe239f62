package data

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTrendRepo(t *testing.T) (*TrendRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewTrendRepo(rdb, log.NewStdLogger(io.Discard)), mr
}

func TestTrendRecordSearchIncrements(t *testing.T) {
	repo, mr := setupTrendRepo(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, repo.RecordSearch(ctx, "history"))
	require.NoError(t, repo.RecordSearch(ctx, "history"))
	require.NoError(t, repo.RecordSearch(ctx, "news"))

	score, err := mr.ZScore(trendKey, "history")
	require.NoError(t, err)
	assert.Equal(t, float64(2), score)

	score, err = mr.ZScore(trendKey, "news")
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestTrendRecordSearchNormalizesTerm(t *testing.T) {
	repo, mr := setupTrendRepo(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, repo.RecordSearch(ctx, "  True Crime "))
	require.NoError(t, repo.RecordSearch(ctx, "true crime"))

	score, err := mr.ZScore(trendKey, "true crime")
	require.NoError(t, err)
	assert.Equal(t, float64(2), score)
}

func TestTrendRecordSearchSetsRollingExpiry(t *testing.T) {
	repo, mr := setupTrendRepo(t)
	defer mr.Close()

	require.NoError(t, repo.RecordSearch(context.Background(), "history"))
	assert.Equal(t, trendTTL, mr.TTL(trendKey))
}

func TestTrendRecordSearchIgnoresEmptyTerm(t *testing.T) {
	repo, mr := setupTrendRepo(t)
	defer mr.Close()

	require.NoError(t, repo.RecordSearch(context.Background(), "   "))
	assert.False(t, mr.Exists(trendKey))
}

func TestTrendRecordSearchNilClient(t *testing.T) {
	repo := NewTrendRepo(nil, log.NewStdLogger(io.Discard))
	assert.NoError(t, repo.RecordSearch(context.Background(), "history"))
}
