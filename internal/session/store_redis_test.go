package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/pai-grc/internal/platform/cache"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	endpoint, err := ctr.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Endpoint() error = %v", err)
	}
	c, err := cache.New(ctx, "redis://"+endpoint)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisStore(c)
}

func TestManager_RedisStore(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testDirectory(t), newRedisStore(t), time.Hour)

	token, _, err := m.Initialize(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	s, err := m.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if s.Username != "alice" {
		t.Errorf("Username = %q, want alice", s.Username)
	}

	if err := m.Teardown(ctx, token); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if _, err := m.Lookup(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Errorf("Lookup() after Teardown error = %v, want ErrNoSession", err)
	}
}
