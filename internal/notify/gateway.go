// Package notify delivers user notifications (mentions, assessment updates)
// over every registered channel: WebSocket connections and Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Notification is a message addressed to a single user.
type Notification struct {
	User      string    `json:"user"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel delivers notifications over one medium. Channels that cannot
// reach the user return nil.
type Channel interface {
	Notify(ctx context.Context, n Notification) error
}

// Notifier is what producers of notifications depend on.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Gateway fans notifications out to all registered channels.
type Gateway struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewGateway creates a new notification gateway.
func NewGateway() *Gateway {
	return &Gateway{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the gateway.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[name] = ch
	slog.Info("notification channel registered", "channel", name)
}

// Notify delivers n on every channel. Failures on one channel do not stop
// delivery on the others; all failures are returned joined.
func (g *Gateway) Notify(ctx context.Context, n Notification) error {
	if n.User == "" {
		return fmt.Errorf("notification user is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	g.mu.RLock()
	names := make([]string, 0, len(g.channels))
	for name := range g.channels {
		names = append(names, name)
	}
	g.mu.RUnlock()
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		g.mu.RLock()
		ch := g.channels[name]
		g.mu.RUnlock()

		if err := ch.Notify(ctx, n); err != nil {
			slog.Warn("notification delivery failed", "channel", name, "user", n.User, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu   sync.Mutex
	Sent []Notification
	Err  error
}

func (m *MockChannel) Notify(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, n)
	return nil
}

// Notifications returns a copy of the delivered notifications.
func (m *MockChannel) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.Sent...)
}
