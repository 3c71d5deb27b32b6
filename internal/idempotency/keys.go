// Package idempotency generates submission tokens for remote mutations.
//
// A key is generated once per logical mutation (for example, one recorded
// play) and reused verbatim on every retry of that mutation. The remote
// acceptor treats a repeated key as "already applied" and returns the
// original record instead of creating a duplicate.
package idempotency

import (
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator produces globally unique idempotency keys.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 keys.
//
// UUIDv7 puts a millisecond timestamp in the most significant 48 bits and
// fills the rest with random bits, so keys are biased toward creation order
// and unique per call.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined keys in order.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewFixedGenerator creates a generator that returns keys in order.
//
//	gen := NewFixedGenerator("k-1", "k-2")
//	gen.Generate() // "k-1"
//	gen.Generate() // "k-2"
//	gen.Generate() // panic: all keys exhausted
func NewFixedGenerator(keys ...string) *FixedGenerator {
	return &FixedGenerator{keys: keys}
}

// Generate returns the next predetermined key.
// Panics when exhausted so a misconfigured test fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic("FixedGenerator: all keys exhausted")
	}
	key := g.keys[g.idx]
	g.idx++
	return key
}
