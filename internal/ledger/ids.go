package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces entity identifiers.
// Implemented by UUIDs (production) and SequentialIDs (tests).
type IDGenerator interface {
	New() string
}

// UUIDs generates time-sortable UUIDv7 identifiers.
type UUIDs struct{}

// New returns a new hyphenated UUIDv7.
func (UUIDs) New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequentialIDs returns "<prefix>-1", "<prefix>-2", ... for deterministic tests.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator with the given prefix.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// New returns the next identifier.
func (g *SequentialIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
