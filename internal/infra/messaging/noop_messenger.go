package messaging

import (
	"context"
	"fmt"
	"sync"

	"recharge-platform/internal/domain/ports/adapter"
)

var _ adapter.Messenger = (*NoopMessenger)(nil)

// NoopMessenger is a simple in-memory messenger to use in tests and dev.
type NoopMessenger struct {
	mu   sync.Mutex
	seq  int64
	Sent []SentMessage
}

type SentMessage struct {
	Phone   string
	Message string
}

func NewNoopMessenger() *NoopMessenger {
	return &NoopMessenger{}
}

func (m *NoopMessenger) Name() string { return "noop" }

func (m *NoopMessenger) Send(ctx context.Context, phoneNumber, message string) (adapter.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.Sent = append(m.Sent, SentMessage{Phone: phoneNumber, Message: message})
	return adapter.SendResult{MessageID: fmt.Sprintf("noop-%d", m.seq)}, nil
}
