package adapter

import "context"

// ChargeResult captures a minimal, provider-agnostic payment outcome.
type ChargeResult struct {
	Approved  bool
	PaymentID string
	Reason    string // provider reason when not approved
}

// PaymentGateway is the port for the payment provider. The real call lives
// outside this core; the orchestrator only needs approved/rejected.
type PaymentGateway interface {
	Name() string
	Charge(ctx context.Context, amount int64, method, description string) (ChargeResult, error)
}
