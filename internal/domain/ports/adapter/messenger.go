package adapter

import "context"

// SendResult is the messaging collaborator's per-message outcome.
type SendResult struct {
	MessageID string
}

// Messenger is the port for the outbound text channel. Phone numbers are
// passed in free form; normalization (stripping non-digits, country-code
// prefixing) is the collaborator's responsibility, not this core's.
type Messenger interface {
	Name() string
	// Send delivers one text message. Implementations must bound the call
	// with their own timeout; a failure here is recoverable per purchase.
	Send(ctx context.Context, phoneNumber, message string) (SendResult, error)
}
