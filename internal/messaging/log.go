// Package messaging holds messengers that do not need a chat network.
package messaging

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessenger writes every message to the log instead of sending it. It
// is used when MESSENGER=log and by the CLI.
type LogMessenger struct {
	Log zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

type Message struct {
	Recipient string
	Text      string
}

func (m *LogMessenger) Deliver(_ context.Context, recipient, text string) error {
	m.mu.Lock()
	m.sent = append(m.sent, Message{Recipient: recipient, Text: text})
	m.mu.Unlock()
	m.Log.Info().Str("recipient", recipient).Str("text", text).Msg("message")
	return nil
}

// Sent returns a copy of everything delivered so far.
func (m *LogMessenger) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
