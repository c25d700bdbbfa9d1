package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseLedger runs the behaviour every Ledger implementation shares.
func exerciseLedger(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	patient, err := l.Record(ctx, Entry{RunID: "run-1", Kind: KindPatient, Name: "Patient1 PatientLast1", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	provider, err := l.Record(ctx, Entry{RunID: "run-1", Kind: KindProvider, Name: "Test1 Last1", Email: "test1@testmail.com", CreatedAt: base})
	require.NoError(t, err)

	assert.NotEmpty(t, patient.ID)
	assert.NotEqual(t, patient.ID, provider.ID)

	entries, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, KindProvider, entries[0].Kind)
	assert.Equal(t, "test1@testmail.com", entries[0].Email)
	assert.Equal(t, KindPatient, entries[1].Kind)
	assert.False(t, entries[0].Removed())
	assert.False(t, entries[0].Confirmed)

	require.NoError(t, l.MarkConfirmed(ctx, provider.ID))
	entries, err = l.List(ctx)
	require.NoError(t, err)
	assert.True(t, entries[0].Confirmed)
	assert.False(t, entries[1].Confirmed)

	removedAt := base.Add(time.Hour)
	require.NoError(t, l.MarkRemoved(ctx, provider.ID, removedAt))
	entries, err = l.List(ctx)
	require.NoError(t, err)
	require.True(t, entries[0].Removed())
	assert.True(t, removedAt.Equal(*entries[0].RemovedAt))
	assert.False(t, entries[1].Removed())
	assert.True(t, entries[0].Confirmed, "removal keeps the confirmation")

	assert.ErrorIs(t, l.MarkRemoved(ctx, "missing", removedAt), ErrNotFound)
	assert.ErrorIs(t, l.MarkConfirmed(ctx, "missing"), ErrNotFound)
}

func TestMemory(t *testing.T) {
	l := NewMemory()
	defer l.Close()
	exerciseLedger(t, l)
}

func TestMemoryWithTTL(t *testing.T) {
	l := NewMemoryWithTTL(time.Hour)
	exerciseLedger(t, l)

	short := NewMemoryWithTTL(20 * time.Millisecond)
	_, err := short.Record(context.Background(), Entry{Kind: KindPatient, Name: "Patient1 PatientLast1"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		entries, err := short.List(context.Background())
		return err == nil && len(entries) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryUpdateKeepsDeadline(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryWithTTL(150 * time.Millisecond)
	e, err := l.Record(ctx, Entry{Kind: KindProvider, Name: "Test1 Last1"})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, l.MarkConfirmed(ctx, e.ID))

	// Without the original deadline the confirm would extend it to 250ms.
	time.Sleep(100 * time.Millisecond)
	entries, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPartitionDropsExpiredEntries(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "old", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "edge", CreatedAt: now.Add(-time.Hour)},
		{ID: "fresh", CreatedAt: now.Add(-time.Minute)},
	}

	live, stale := partition(append([]Entry(nil), entries...), time.Hour, now)
	require.Len(t, live, 1)
	assert.Equal(t, "fresh", live[0].ID)
	assert.Equal(t, []string{"old", "edge"}, stale)

	live, stale = partition(append([]Entry(nil), entries...), 0, now)
	assert.Len(t, live, 3)
	assert.Empty(t, stale)
}

func TestRecordDefaults(t *testing.T) {
	before := time.Now()
	e, err := NewMemory().Record(context.Background(), Entry{Kind: KindAppointment})
	require.NoError(t, err)
	_, err = uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.False(t, e.CreatedAt.Before(before))
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("ECARE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ECARE_TEST_REDIS_ADDR not set")
	}

	l, err := NewRedis(context.Background(), RedisConfig{
		Addr:      addr,
		KeyPrefix: "ecare-e2e-test-" + uuid.NewString(),
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	defer l.Close()
	defer l.Clear(context.Background())

	exerciseLedger(t, l)

	ctx := context.Background()
	old, err := l.Record(ctx, Entry{Kind: KindPatient, Name: "Patient0 PatientLast0", CreatedAt: time.Now().Add(-2 * time.Minute)})
	require.NoError(t, err)
	entries, err := l.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.ErrorIs(t, l.MarkRemoved(ctx, old.ID, time.Now()), ErrNotFound)
	n, err := l.client.HLen(ctx, l.key).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRedisUnreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
