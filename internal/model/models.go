package model

import (
	"errors"
	"math"
	"time"
)

type PaymentRequest struct {
	CorrelationID string  `json:"correlationId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
}

// QueuedPayment is a payment sitting in the work queue waiting for dispatch.
// It carries no requestedAt: the dispatch timestamp is stamped fresh on every
// attempt, while EnqueuedAt survives requeues untouched.
type QueuedPayment struct {
	CorrelationID string    `json:"correlationId"`
	Amount        float64   `json:"amount"`
	EnqueuedAt    time.Time `json:"enqueuedAt"`
}

type ProcessorType string

const (
	ProcessorDefault  ProcessorType = "default"
	ProcessorFallback ProcessorType = "fallback"
	ProcessorNone     ProcessorType = "none"
)

type ProcessorHealth struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

type ProcessorSummary struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

type Summary struct {
	Default  ProcessorSummary `json:"default"`
	Fallback ProcessorSummary `json:"fallback"`
}

// RoundAmount normalizes a monetary total to two decimal places.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnavailableProcessor = errors.New("unavailable processor")
	ErrInvalidRange         = errors.New("invalid summary range")
)
