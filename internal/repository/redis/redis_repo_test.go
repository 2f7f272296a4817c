package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrt-predictor/internal/domain/entity"
)

func newTestRepo(t *testing.T, ttl time.Duration) (*RedisRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRepo(client, ttl), mr
}

func TestRedisRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t, time.Hour)

	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	a := entity.NewHistoryEntry("a", entity.Reading{AirTemp: 300.5, ProcessTemp: 310.2, RotationSpeed: 1500, Torque: 40, ToolWear: 10}, entity.NoFailure, at)
	b := entity.NewHistoryEntry("b", entity.Reading{AirTemp: 301, ProcessTemp: 311, RotationSpeed: 1300, Torque: 70, ToolWear: 220}, entity.Failure, at.Add(time.Second))

	require.NoError(t, r.Append(ctx, "s1", a))
	require.NoError(t, r.Append(ctx, "s1", b))

	got, err := r.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []entity.HistoryEntry{a, b}, got)

	require.NoError(t, r.Clear(ctx, "s1"))
	got, err = r.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisRepoSessionTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRepo(t, 10*time.Minute)

	require.NoError(t, r.Append(ctx, "s1", entity.NewHistoryEntry("a", entity.Reading{}, entity.NoFailure, time.Unix(0, 0).UTC())))
	assert.Equal(t, 10*time.Minute, mr.TTL("history:s1"))

	mr.FastForward(11 * time.Minute)
	got, err := r.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisRepoBadPayload(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRepo(t, 0)

	_, err := mr.RPush("history:s1", "{not json")
	require.NoError(t, err)

	_, err = r.List(ctx, "s1")
	assert.ErrorContains(t, err, "unmarshal history entry")
}

// failExpire makes every EXPIRE command fail.
type failExpire struct{}

func (failExpire) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failExpire) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "expire" {
			err := errors.New("READONLY You can't write against a read only replica")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failExpire) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisRepoListReportsTTLRefreshFailure(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRepo(t, 10*time.Minute)

	_, err := mr.RPush("history:s1", `{"id":"a"}`)
	require.NoError(t, err)
	r.Client.AddHook(failExpire{})

	_, err = r.List(ctx, "s1")
	assert.ErrorContains(t, err, "redis refresh history ttl")
}
