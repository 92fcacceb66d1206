// Package sentinel classifies dispatch failures so the dispatcher can
// distinguish outcomes that end a payment's life (duplicate acceptance,
// permanently invalid payload) from transient ones that warrant a requeue.
package sentinel

import "errors"

type Guardian struct {
	Dismissible bool
	Duplicate   bool
	Context     string
}

func (g Guardian) Error() string {
	return g.Context
}

// NewGuardian builds a dismissible or retryable classification.
func NewGuardian(dismissible bool, context string) Guardian {
	return Guardian{
		Dismissible: dismissible,
		Context:     context,
	}
}

// NewDuplicate marks a processor response that reports the correlationId as
// already accepted. Callers treat it as success, not failure.
func NewDuplicate(context string) Guardian {
	return Guardian{
		Dismissible: true,
		Duplicate:   true,
		Context:     context,
	}
}

func IsDismissible(err error) bool {
	var g Guardian
	if !errors.As(err, &g) {
		return false
	}
	return g.Dismissible
}

func IsDuplicate(err error) bool {
	var g Guardian
	if !errors.As(err, &g) {
		return false
	}
	return g.Duplicate
}
