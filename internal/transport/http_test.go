package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/model"
	"paygate/internal/queue"
	"paygate/internal/store"
	"paygate/internal/summary"
)

type purgerSpy struct {
	called bool
	token  string
}

func (p *purgerSpy) PurgeAll(_ context.Context, token string) error {
	p.called = true
	p.token = token
	return nil
}

type fixture struct {
	app    *fiber.App
	queue  *queue.MemoryQueue
	store  *store.MemoryStore
	purger *purgerSpy
}

func newFixture() *fixture {
	q := queue.NewMemoryQueue()
	st := store.NewMemoryStore()
	purger := &purgerSpy{}

	h := NewHandler(q, st, summary.New(st), purger, nil, "123")
	app := fiber.New(fiber.Config{
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})
	h.Register(app)

	return &fixture{app: app, queue: q, store: st, purger: purger}
}

func TestSubmitPaymentEnqueues(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/payments",
		strings.NewReader(`{"correlationId":"abc-1","amount":100.50}`))
	req.Header.Set("Content-Type", "application/json")

	res, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, res.StatusCode)

	batch, err := f.queue.DequeueBatch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "abc-1", batch[0].CorrelationID)
	assert.Equal(t, 100.50, batch[0].Amount)
	assert.False(t, batch[0].EnqueuedAt.IsZero())
}

func TestSubmitPaymentRejectsMalformedInput(t *testing.T) {
	f := newFixture()

	bodies := []string{
		`not json`,
		`{"amount":100.50}`,
		`{"correlationId":"abc-1"}`,
		`{"correlationId":"abc-1","amount":0}`,
		`{"correlationId":"abc-1","amount":-5}`,
		`{"correlationId":"abc-1","amount":"ten"}`,
	}

	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode, "body: %s", body)
	}

	depth, err := f.queue.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestPaymentsSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.Record(ctx, model.ProcessorDefault, "abc-1", 100.50, at))

	req := httptest.NewRequest(http.MethodGet,
		"/payments-summary?from=2025-07-01T11:00:00Z&to=2025-07-01T13:00:00Z", nil)

	res, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var result model.Summary
	require.NoError(t, sonic.Unmarshal(raw, &result))
	assert.Equal(t, int64(1), result.Default.TotalRequests)
	assert.Equal(t, 100.50, result.Default.TotalAmount)
	assert.Equal(t, int64(0), result.Fallback.TotalRequests)
}

func TestPaymentsSummaryRejectsBadWindow(t *testing.T) {
	f := newFixture()

	for _, target := range []string{
		"/payments-summary?from=garbage&to=2025-07-01T13:00:00Z",
		"/payments-summary?from=2025-07-02T00:00:00Z&to=2025-07-01T00:00:00Z",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode, "target: %s", target)
	}
}

func TestPurgeClearsEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, model.QueuedPayment{CorrelationID: "abc-1", Amount: 10}))
	require.NoError(t, f.store.Record(ctx, model.ProcessorDefault, "abc-2", 20, time.Now().UTC()))

	req := httptest.NewRequest(http.MethodPost, "/purge-payments", nil)
	req.Header.Set("X-Rinha-Token", "secret")

	res, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	depth, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)

	now := time.Now().UTC()
	sum, err := f.store.SumInRange(ctx, model.ProcessorDefault, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.TotalRequests)

	assert.True(t, f.purger.called)
	assert.Equal(t, "secret", f.purger.token)
}

func TestHealthzReportsQueueDepth(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, model.QueuedPayment{CorrelationID: "abc-1", Amount: 10}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["queue_depth"])
}
