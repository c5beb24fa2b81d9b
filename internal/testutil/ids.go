package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates prefix-0001, prefix-0002, ... in order.
//
// Same scenario, same ids: used for golden comparison of exports and reports.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs returns a generator. An empty prefix uses "TRX-TEST".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "TRX-TEST"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
