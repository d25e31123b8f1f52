// Package audit records who did what to which resource, for the audit
// trail view.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event is a single audit trail entry.
type Event struct {
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Logger records audit events.
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// Trail is a Logger that can also list events for a resource.
type Trail interface {
	Logger
	List(ctx context.Context, resource string, limit int) ([]Event, error)
}

// NopLogger ignores all events.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) error {
	return nil
}

// MemoryLogger stores events in memory.
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		events: []Event{},
	}
}

func (l *MemoryLogger) Log(_ context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("action is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

// Events returns every recorded event in insertion order.
func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// List returns the newest events for resource first.
func (l *MemoryLogger) List(_ context.Context, resource string, limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Resource != resource {
			continue
		}
		out = append(out, l.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// PostgresLogger inserts events into the audit_events table.
type PostgresLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresLogger(pool *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{pool: pool}
}

func (l *PostgresLogger) Log(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("audit logger pool is nil")
	}
	if event.Action == "" {
		return fmt.Errorf("action is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_events (actor, action, resource, data, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		event.Actor,
		event.Action,
		event.Resource,
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	slog.Debug("audit event logged",
		"action", event.Action,
		"resource", event.Resource,
		"actor", event.Actor,
	)
	return nil
}

func (l *PostgresLogger) List(ctx context.Context, resource string, limit int) ([]Event, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("audit logger pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := l.pool.Query(ctx,
		`SELECT actor, action, resource, data, created_at
		 FROM audit_events
		 WHERE resource = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		resource,
		limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.Actor, &e.Action, &e.Resource, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.Data); err != nil {
				return nil, fmt.Errorf("unmarshal audit data: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
