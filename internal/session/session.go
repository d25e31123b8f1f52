package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-grc/internal/platform/cache"
)

// ErrNoSession is returned for unknown, expired or torn-down tokens.
var ErrNoSession = errors.New("no active session")

// Session is the server-side state behind a bearer token.
type Session struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store keeps sessions keyed by token digest.
type Store interface {
	Put(ctx context.Context, digest string, s Session, ttl time.Duration) error
	Get(ctx context.Context, digest string) (Session, error)
	Delete(ctx context.Context, digest string) error
}

// Manager issues, resolves and ends sessions.
type Manager struct {
	users *Directory
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a session manager.
func NewManager(users *Directory, store Store, ttl time.Duration) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{users: users, store: store, ttl: ttl, now: time.Now}
}

// Initialize authenticates the user and starts a session, returning the
// bearer token that identifies it.
func (m *Manager) Initialize(ctx context.Context, username, password string) (string, Session, error) {
	u, err := m.users.Authenticate(username, password)
	if err != nil {
		slog.Info("sign-in rejected", "username", username)
		return "", Session{}, err
	}

	token, err := newToken()
	if err != nil {
		return "", Session{}, err
	}

	now := m.now()
	s := Session{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, Digest(token), s, m.ttl); err != nil {
		return "", Session{}, fmt.Errorf("storing session: %w", err)
	}

	slog.Info("session started", "username", u.Username)
	return token, s, nil
}

// Lookup resolves a bearer token to its session.
func (m *Manager) Lookup(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	s, err := m.store.Get(ctx, Digest(token))
	if err != nil {
		return Session{}, err
	}
	if !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt) {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Teardown ends the session identified by token. Ending an unknown session
// is not an error.
func (m *Manager) Teardown(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, Digest(token)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Digest is the storage key for a token.
func Digest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemoryStore is an in-memory Store. Expired sessions are dropped on read.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) Put(_ context.Context, digest string, sess Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[digest] = sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, digest string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[digest]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		delete(s.sessions, digest)
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, digest)
	return nil
}

// RedisStore keeps sessions in Redis with a native expiry.
type RedisStore struct {
	cache *cache.Cache
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Put(ctx context.Context, digest string, sess Session, ttl time.Duration) error {
	return s.cache.SetJSON(ctx, redisKey(digest), sess, ttl)
}

func (s *RedisStore) Get(ctx context.Context, digest string) (Session, error) {
	var sess Session
	found, err := s.cache.GetJSON(ctx, redisKey(digest), &sess)
	if err != nil {
		return Session{}, err
	}
	if !found {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, digest string) error {
	return s.cache.Delete(ctx, redisKey(digest))
}

func redisKey(digest string) string {
	return "grc:session:" + digest
}
