package ai

import (
	"fmt"
	"sync"
)

// Budget caps the tokens each user may spend on AI requests.
type Budget interface {
	// Allow reports whether user still has tokens left.
	Allow(user string) bool
	// Record adds tokens to user's usage.
	Record(user string, tokens int) error
}

// MemoryBudget tracks usage in memory against one limit shared by all
// users. A limit of zero or less means unlimited.
type MemoryBudget struct {
	mu    sync.Mutex
	limit int64
	usage map[string]int64
}

// NewMemoryBudget creates a budget allowing limit tokens per user.
func NewMemoryBudget(limit int64) *MemoryBudget {
	return &MemoryBudget{
		limit: limit,
		usage: make(map[string]int64),
	}
}

func (b *MemoryBudget) Allow(user string) bool {
	if b.limit <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usage[user] < b.limit
}

func (b *MemoryBudget) Record(user string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[user] += int64(tokens)
	return nil
}

// Used returns the tokens user has spent.
func (b *MemoryBudget) Used(user string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usage[user]
}
