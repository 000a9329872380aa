package engine

import (
	gatewayv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/gateway/v1"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/matching"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithPolicy overrides the default price-time matching policy.
func WithPolicy(policy matching.Policy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithPersistence registers a persistence gateway. May be given more
// than once; every gateway receives every order and trade.
func WithPersistence(p gatewayv1.Persistence) Option {
	return func(e *Engine) {
		e.persistence = append(e.persistence, p)
	}
}

// WithNotification registers the market-update publisher.
func WithNotification(n gatewayv1.Notification) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}
