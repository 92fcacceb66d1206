// Package processor talks to the two upstream payment processors.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"paygate/internal/model"
	"paygate/internal/sentinel"
)

type dispatchPayload struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
	RequestedAt   string  `json:"requestedAt"`
}

type Client struct {
	http         *http.Client
	urls         map[model.ProcessorType]string
	sendTimeout  time.Duration
	probeTimeout time.Duration
}

type Option func(*Client)

func WithSendTimeout(d time.Duration) Option {
	return func(c *Client) { c.sendTimeout = d }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) { c.probeTimeout = d }
}

func NewClient(defaultURL, fallbackURL string, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        512,
				MaxIdleConnsPerHost: 128,
				IdleConnTimeout:     120 * time.Second,
				MaxConnsPerHost:     512,
				DialContext: (&net.Dialer{
					Timeout:   time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
			Timeout: 5 * time.Second,
		},
		urls: map[model.ProcessorType]string{
			model.ProcessorDefault:  defaultURL,
			model.ProcessorFallback: fallbackURL,
		},
		sendTimeout:  500 * time.Millisecond,
		probeTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts a payment to one processor with a freshly stamped requestedAt.
// A 422 means the processor already accepted this correlationId and comes
// back as a sentinel duplicate, which callers treat as success.
func (c *Client) Send(ctx context.Context, processor model.ProcessorType, p model.QueuedPayment, requestedAt time.Time) error {
	url, ok := c.urls[processor]
	if !ok {
		return fmt.Errorf("%w: no url for processor %s", model.ErrUnavailableProcessor, processor)
	}

	body, err := sonic.Marshal(dispatchPayload{
		CorrelationID: p.CorrelationID,
		Amount:        p.Amount,
		RequestedAt:   requestedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/payments", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.ErrUnavailableProcessor
		}
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusUnprocessableEntity:
		return sentinel.NewDuplicate("correlationId already accepted by " + string(processor))
	case res.StatusCode == http.StatusTooManyRequests,
		res.StatusCode == http.StatusRequestTimeout,
		res.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned status %d", model.ErrUnavailableProcessor, processor, res.StatusCode)
	default:
		return fmt.Errorf("processor %s returned status %d", processor, res.StatusCode)
	}
}

// CheckHealth probes one processor's self-reported health. Any transport or
// decode failure reads as failing with a prohibitive latency.
func (c *Client) CheckHealth(ctx context.Context, processor model.ProcessorType) model.ProcessorHealth {
	failing := model.ProcessorHealth{Failing: true, MinResponseTime: 9999}

	url, ok := c.urls[processor]
	if !ok {
		return failing
	}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/payments/service-health", nil)
	if err != nil {
		return failing
	}

	res, err := c.http.Do(req)
	if err != nil {
		return failing
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return failing
	}

	var health model.ProcessorHealth
	if err := sonic.ConfigFastest.NewDecoder(res.Body).Decode(&health); err != nil {
		return failing
	}
	return health
}

// PurgeAll clears both upstream processors' records. Administrative only.
func (c *Client) PurgeAll(ctx context.Context, token string) error {
	for processor, url := range c.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/admin/purge-payments", nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-Rinha-Token", token)

		res, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("purge %s: %w", processor, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("purge %s: status %d", processor, res.StatusCode)
		}
	}
	return nil
}
