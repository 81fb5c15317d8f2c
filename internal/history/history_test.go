package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/devflow/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	s := NewStore(database)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first, err := s.Record(ctx, Entry{Question: " how do I start? ", Answer: "Run tool init.", Sources: []string{"spec.pdf"}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "how do I start?", first.Question)

	_, err = s.Record(ctx, Entry{Question: "second", Answer: "b", SessionID: "s1"})
	require.NoError(t, err)

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Question)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, []string{}, got[0].Sources)

	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, []string{"spec.pdf"}, got[1].Sources)
	assert.True(t, first.CreatedAt.Equal(got[1].CreatedAt))
}

func TestRecentLimit(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Record(ctx, Entry{Question: "q", Answer: "a"})
		require.NoError(t, err)
	}

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestRecentEmpty(t *testing.T) {
	got, err := setupStore(t).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLookup(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Record(ctx, Entry{Question: "q", Answer: "old"})
	require.NoError(t, err)
	_, err = s.Record(ctx, Entry{Question: "q", Answer: "new"})
	require.NoError(t, err)
	_, err = s.Record(ctx, Entry{Question: "q", Answer: "Error: quota exceeded"})
	require.NoError(t, err)

	e, err := s.Lookup(ctx, "  q ")
	require.NoError(t, err)
	assert.Equal(t, "new", e.Answer)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 0, 1, 500_000_000, time.UTC)
	assert.True(t, want.Equal(parseTime("2026-03-01 12:00:01.500")))
	assert.True(t, want.Equal(parseTime("2026-03-01T12:00:01.5Z")))
	assert.True(t, parseTime("garbage").IsZero())
}
