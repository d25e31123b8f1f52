package comment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Store persists comments.
type Store interface {
	Add(ctx context.Context, c Comment) (Comment, error)
	List(ctx context.Context, resource string) ([]Comment, error)
}

// MemoryStore keeps comments in memory.
type MemoryStore struct {
	mu       sync.Mutex
	comments []Comment
}

// NewMemoryStore creates an empty in-memory comment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(_ context.Context, c Comment) (Comment, error) {
	if c.Resource == "" {
		return Comment{}, fmt.Errorf("resource is required")
	}
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Mentions = append([]string{}, c.Mentions...)

	s.mu.Lock()
	s.comments = append(s.comments, c)
	s.mu.Unlock()
	return c, nil
}

func (s *MemoryStore) List(_ context.Context, resource string) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Comment{}
	for _, c := range s.comments {
		if c.Resource == resource {
			out = append(out, c)
		}
	}
	return out, nil
}

// PostgresStore keeps comments in the comments table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed comment store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Add(ctx context.Context, c Comment) (Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if c.Resource == "" {
		return Comment{}, fmt.Errorf("resource is required")
	}
	mentions := c.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (resource, author, body, mentions, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text, created_at`,
		c.Resource, c.Author, c.Body, mentions, createdAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	c.Mentions = mentions
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, resource string) ([]Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, resource, author, body, mentions, created_at
		 FROM comments
		 WHERE resource = $1
		 ORDER BY created_at ASC, id ASC`,
		resource,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Resource, &c.Author, &c.Body, &c.Mentions, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}
