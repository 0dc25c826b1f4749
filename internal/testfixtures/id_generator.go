package testfixtures

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator hands out predictable shift and time-off ids ("id-1", "id-2",
// ...) so tests can address records they just created.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

// NewIDGenerator returns a generator using prefix, or "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	return g.format(g.issued.Add(1))
}

// Peek returns the id the next call to Next will produce.
func (g *IDGenerator) Peek() string {
	return g.format(g.issued.Load() + 1)
}

func (g *IDGenerator) format(n uint64) string {
	return g.prefix + "-" + strconv.FormatUint(n, 10)
}

// NextFunc adapts the generator to the services' id hook. A nil generator
// defers to the services' default.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return nil
	}
	return g.Next
}
