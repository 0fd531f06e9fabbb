package payment

import (
	"context"
	"fmt"
	"sync"

	"recharge-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway approves every charge; the real provider integration
// lives outside this core.
type NoopPaymentGateway struct {
	mu  sync.Mutex
	seq int64
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) Charge(ctx context.Context, amount int64, method, description string) (adapter.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return adapter.ChargeResult{
		Approved:  true,
		PaymentID: fmt.Sprintf("noop-%d", g.seq),
	}, nil
}
