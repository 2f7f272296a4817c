package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrt-predictor/internal/domain/entity"
)

func entry(id string) entity.HistoryEntry {
	return entity.NewHistoryEntry(id, entity.Reading{AirTemp: 300}, entity.NoFailure, time.Unix(0, 0).UTC())
}

func TestHistoryRepoAppendListClear(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo(time.Hour)

	require.NoError(t, r.Append(ctx, "s1", entry("a")))
	require.NoError(t, r.Append(ctx, "s1", entry("b")))

	got, err := r.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	// The returned slice is a copy.
	got[0].ID = "mutated"
	again, err := r.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].ID)

	require.NoError(t, r.Clear(ctx, "s1"))
	got, err = r.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryRepoSessionsIsolated(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo(time.Hour)

	require.NoError(t, r.Append(ctx, "s1", entry("a")))
	got, err := r.List(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryRepoExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	r := NewHistoryRepo(30 * time.Minute)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Append(ctx, "idle", entry("a")))
	require.NoError(t, r.Append(ctx, "active", entry("b")))

	now = now.Add(20 * time.Minute)
	_, err := r.List(ctx, "active")
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	got, err := r.List(ctx, "active")
	require.NoError(t, err)
	assert.Len(t, got, 1, "touched 20m ago, still alive")

	got, err = r.List(ctx, "idle")
	require.NoError(t, err)
	assert.Empty(t, got, "idle for 40m, expired")
}

func TestHistoryRepoConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Append(ctx, fmt.Sprintf("s%d", i%5), entry(fmt.Sprintf("e%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, r.Sessions())
	total := 0
	for i := 0; i < 5; i++ {
		got, err := r.List(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		total += len(got)
	}
	assert.Equal(t, 50, total)
}

func TestHistoryRepoReadsDoNotCreateSessions(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo(time.Hour)

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("anon-%d", i)
		got, err := r.List(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		require.NoError(t, r.Clear(ctx, id))
	}
	assert.Zero(t, r.Sessions())

	require.NoError(t, r.Append(ctx, "s1", entry("a")))
	assert.Equal(t, 1, r.Sessions())

	require.NoError(t, r.Clear(ctx, "s1"))
	assert.Zero(t, r.Sessions(), "clear drops the session")
}

func TestHistoryRepoExpiredSessionReadsEmptyBeforeSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	r := NewHistoryRepo(time.Hour)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Append(ctx, "s1", entry("a")))

	// Push the last sweep forward so the next one is not due yet.
	now = now.Add(61 * time.Minute)
	r.lastSweep = now

	got, err := r.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, r.Sessions())

	require.NoError(t, r.Append(ctx, "s1", entry("b")))
	got, err = r.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "b", got[0].ID)
}
