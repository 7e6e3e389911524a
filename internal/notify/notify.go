// Package notify is the fire-and-forget sink for user-visible messages.
// Delivery failures are logged and never reach the caller.
package notify

import (
	"context"
	"sync"

	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/store"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notifier delivers a message to the user.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, message string)
}

// LogNotifier writes notifications to the logger.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, kind Kind, message string) {
	log := n.logger.WithField("kind", string(kind))
	switch kind {
	case KindError:
		log.Warn(message)
	default:
		log.Info(message)
	}
}

// StoreNotifier persists notifications to the notifications collection so
// the UI layer can show them later, and logs them as well.
type StoreNotifier struct {
	store  store.RecordStore
	logger logging.Logger
	log    *LogNotifier
}

func NewStoreNotifier(s store.RecordStore, logger logging.Logger) *StoreNotifier {
	return &StoreNotifier{store: s, logger: logger, log: NewLogNotifier(logger)}
}

func (n *StoreNotifier) Notify(ctx context.Context, kind Kind, message string) {
	n.log.Notify(ctx, kind, message)
	_, err := n.store.Insert(ctx, store.CollectionNotifications, store.Record{
		"kind":    string(kind),
		"message": message,
		"read":    false,
	})
	if err != nil {
		n.logger.WithError(err).Warn("Failed to persist notification",
			logging.F(logging.FieldCollection, store.CollectionNotifications))
	}
}

// Message is one captured notification.
type Message struct {
	Kind    Kind
	Message string
}

// MockNotifier records notifications for tests.
type MockNotifier struct {
	mu       sync.Mutex
	messages []Message
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(_ context.Context, kind Kind, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{Kind: kind, Message: message})
}

// Messages returns a copy of everything captured so far.
func (m *MockNotifier) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Count returns how many notifications of the given kind were captured.
func (m *MockNotifier) Count(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent notification, if any.
func (m *MockNotifier) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return Message{}, false
	}
	return m.messages[len(m.messages)-1], true
}

func (m *MockNotifier) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
