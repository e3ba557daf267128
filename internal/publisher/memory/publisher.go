// Package memory records published notifications in process. The harvest
// command falls back to it when no Pub/Sub topic is configured so the run
// notification is still logged.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Message captures one publish call after JSON encoding.
type Message struct {
	ID    string
	Topic string
	Data  json.RawMessage
}

// Publisher keeps published messages in order.
type Publisher struct {
	mu       sync.RWMutex
	messages []Message
	logger   *zap.Logger
}

// New returns a memory Publisher. logger may be nil.
func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// Publish encodes payload the same way the Pub/Sub publisher does and stores it.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Data: data})
	p.mu.Unlock()

	p.logger.Info("notification recorded", zap.String("id", id), zap.String("topic", topic), zap.ByteString("payload", data))
	return id, nil
}

// Messages returns a copy of the recorded publishes.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Message(nil), p.messages...)
}

// Close satisfies io.Closer; there is nothing to release.
func (p *Publisher) Close() error {
	return nil
}
