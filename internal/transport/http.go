// Package transport exposes the gateway over HTTP. Validation happens here;
// everything past Enqueue is the dispatcher's problem.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"paygate/internal/dispatch"
	"paygate/internal/model"
	"paygate/internal/queue"
	"paygate/internal/store"
	"paygate/internal/summary"
)

var validatorInstance = validator.New()

// Purger clears both upstream processors' records on an admin purge.
type Purger interface {
	PurgeAll(ctx context.Context, token string) error
}

type Handler struct {
	queue      queue.Queue
	store      store.Store
	summary    summary.Service
	purger     Purger
	dispatcher *dispatch.Dispatcher
	adminToken string
}

func NewHandler(q queue.Queue, st store.Store, svc summary.Service, purger Purger, d *dispatch.Dispatcher, adminToken string) *Handler {
	return &Handler{
		queue:      q,
		store:      st,
		summary:    svc,
		purger:     purger,
		dispatcher: d,
		adminToken: adminToken,
	}
}

func (h *Handler) Register(app *fiber.App) {
	app.Post("/payments", h.SubmitPayment)
	app.Get("/payments-summary", h.PaymentsSummary)
	app.Post("/purge-payments", h.PurgePayments)
	app.Get("/healthz", h.Healthz)
}

// SubmitPayment accepts a payment for eventual dispatch. 202 means enqueued,
// never dispatched.
func (h *Handler) SubmitPayment(c *fiber.Ctx) error {
	var req model.PaymentRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if err := validatorInstance.Struct(req); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	err := h.queue.Enqueue(c.Context(), model.QueuedPayment{
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		EnqueuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *Handler) PaymentsSummary(c *fiber.Ctx) error {
	from, to, err := summary.ParseWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	result, err := h.summary.Summarize(c.Context(), from, to)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRange) {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(result)
}

// PurgePayments resets the gateway and both upstreams. Administrative and
// test use only.
func (h *Handler) PurgePayments(c *fiber.Ctx) error {
	ctx := c.Context()
	token := c.Get("X-Rinha-Token", h.adminToken)

	if err := h.queue.Purge(ctx); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if err := h.store.Purge(ctx); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if err := h.purger.PurgeAll(ctx, token); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	depth, err := h.queue.Len(c.Context())
	if err != nil {
		depth = -1
	}

	body := fiber.Map{
		"status":      "healthy",
		"queue_depth": depth,
	}
	if h.dispatcher != nil {
		body["dispatcher"] = h.dispatcher.Metrics()
	}
	return c.JSON(body)
}
