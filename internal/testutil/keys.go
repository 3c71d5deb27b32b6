package testutil

import (
	"fmt"
	"sync"
)

// SequentialKeys generates readable, predictable keys: "<prefix>-0001",
// "<prefix>-0002", and so on. It never runs out.
//
// Use it where idempotency.FixedGenerator would need a key list longer than
// the test cares to write.
//
// Thread-safety: SequentialKeys is safe for concurrent use via internal mutex.
type SequentialKeys struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialKeys creates a generator. An empty prefix becomes "key".
func NewSequentialKeys(prefix string) *SequentialKeys {
	if prefix == "" {
		prefix = "key"
	}
	return &SequentialKeys{prefix: prefix}
}

// Generate returns the next key.
//
// Implements idempotency.KeyGenerator.
func (g *SequentialKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequentialKeys) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
