package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out "<prefix>-<n>" identifiers. Each prefix counts on its
// own, so record IDs and session tokens stay predictable side by side.
type IDGenerator struct {
	mu       sync.Mutex
	prefix   string
	counters map[string]uint64
}

// NewIDGenerator uses prefix for Next; an empty prefix means "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix, counters: map[string]uint64{}}
}

func (g *IDGenerator) Next() string {
	return g.next(g.prefix)
}

func (g *IDGenerator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.counters[prefix])
}

// NextFunc returns Next for injection into service deps.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Sequence returns a generator for prefix that shares this generator's state.
func (g *IDGenerator) Sequence(prefix string) func() string {
	return func() string { return g.next(prefix) }
}

// Reset restarts every sequence at 1.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters = map[string]uint64{}
}
