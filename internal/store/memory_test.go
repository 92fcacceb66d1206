package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/model"
)

func TestMemoryStoreRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	at := time.Now().UTC()

	require.NoError(t, st.Record(ctx, model.ProcessorDefault, "abc-1", 100.50, at))
	require.NoError(t, st.Record(ctx, model.ProcessorDefault, "abc-1", 100.50, at))
	// Even a conflicting later write for the same id must not double-count.
	require.NoError(t, st.Record(ctx, model.ProcessorFallback, "abc-1", 100.50, at.Add(time.Second)))

	sum, err := st.SumInRange(ctx, model.ProcessorDefault, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.TotalRequests)
	assert.Equal(t, 100.50, sum.TotalAmount)

	sum, err = st.SumInRange(ctx, model.ProcessorFallback, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.TotalRequests)
}

func TestMemoryStoreRangeBoundariesAreInclusive(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	from := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	to := from.Add(time.Minute)

	require.NoError(t, st.Record(ctx, model.ProcessorDefault, "at-from", 10, from))
	require.NoError(t, st.Record(ctx, model.ProcessorDefault, "at-to", 20, to))
	require.NoError(t, st.Record(ctx, model.ProcessorDefault, "before", 30, from.Add(-time.Millisecond)))
	require.NoError(t, st.Record(ctx, model.ProcessorDefault, "after", 40, to.Add(time.Millisecond)))

	sum, err := st.SumInRange(ctx, model.ProcessorDefault, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.TotalRequests)
	assert.Equal(t, 30.0, sum.TotalAmount)
}

func TestMemoryStorePurge(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	at := time.Now().UTC()

	require.NoError(t, st.Record(ctx, model.ProcessorDefault, "abc-1", 10, at))
	require.NoError(t, st.Purge(ctx))

	sum, err := st.SumInRange(ctx, model.ProcessorDefault, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.TotalRequests)
	assert.Equal(t, 0.0, sum.TotalAmount)
}
