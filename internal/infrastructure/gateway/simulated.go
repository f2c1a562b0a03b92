package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/google/uuid"
)

type authorizationState int

const (
	stateAuthorized authorizationState = iota
	stateCaptured
	stateVoided
)

// Simulated is an in-process payment gateway with configurable latency, declines and timeouts.
type Simulated struct {
	name        string
	declineRate float64
	timeoutRate float64
	latency     time.Duration

	mu             sync.Mutex
	authorizations map[string]authorizationState
}

type SimulatedOption func(*Simulated)

func WithDeclineRate(rate float64) SimulatedOption {
	return func(g *Simulated) { g.declineRate = rate }
}

func WithTimeoutRate(rate float64) SimulatedOption {
	return func(g *Simulated) { g.timeoutRate = rate }
}

func WithLatency(d time.Duration) SimulatedOption {
	return func(g *Simulated) { g.latency = d }
}

func NewSimulated(name string, opts ...SimulatedOption) *Simulated {
	g := &Simulated{
		name:           name,
		latency:        50 * time.Millisecond,
		authorizations: make(map[string]authorizationState),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

var _ payment.Gateway = (*Simulated)(nil)

func (g *Simulated) Name() string { return g.name }

func (g *Simulated) ExecutePayment(ctx context.Context, req payment.AuthorizationRequest) (string, error) {
	if err := g.roundTrip(ctx); err != nil {
		return "", err
	}
	if rand.Float64() < g.declineRate {
		return "", fmt.Errorf("%s: %w for %s", g.name, domainErrors.ErrPaymentDeclined, req)
	}

	code := "AUTH-" + strings.ToUpper(uuid.NewString()[:8])
	g.mu.Lock()
	g.authorizations[code] = stateAuthorized
	g.mu.Unlock()
	return code, nil
}

func (g *Simulated) Capture(ctx context.Context, code string) error {
	if err := g.roundTrip(ctx); err != nil {
		return err
	}
	return g.transition(code, stateCaptured)
}

func (g *Simulated) Void(ctx context.Context, code string) error {
	if err := g.roundTrip(ctx); err != nil {
		return err
	}
	return g.transition(code, stateVoided)
}

// transition moves an authorization out of the authorized state. Repeating the
// transition that already happened is accepted. A captured authorization can still be
// voided, which releases the captured funds; a voided one can no longer be captured.
func (g *Simulated) transition(code string, to authorizationState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.authorizations[code]
	if !ok {
		return domainErrors.NewDomainError("unknown_authorization", "authorization "+code+" not found", domainErrors.ErrInvalidInput)
	}
	if state == to {
		return nil
	}
	if state == stateCaptured && to == stateVoided {
		g.authorizations[code] = to
		return nil
	}
	if state != stateAuthorized {
		return domainErrors.NewDomainError("authorization_settled", "authorization "+code+" is no longer open", domainErrors.ErrInvalidInput)
	}
	g.authorizations[code] = to
	return nil
}

func (g *Simulated) roundTrip(ctx context.Context) error {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return ctx.Err()
	}
	if rand.Float64() < g.timeoutRate {
		return fmt.Errorf("%s: %w", g.name, domainErrors.ErrGatewayTimeout)
	}
	return nil
}
