package tvmsym

import (
	"sync"

	"github.com/willf/bitset"
)

// Coverage tracks the executed instructions of a contract, including the
// implicit return of each block. It is safe for concurrent use.
type Coverage struct {
	mu     sync.Mutex
	blocks []*bitset.BitSet
}

// NewCoverage returns an empty coverage map for contract.
func NewCoverage(contract *Contract) *Coverage {
	c := &Coverage{blocks: make([]*bitset.BitSet, len(contract.Blocks))}
	for i, block := range contract.Blocks {
		c.blocks[i] = bitset.New(uint(len(block.Instrs) + 1))
	}
	return c
}

// Visit marks the instruction at loc as executed.
func (c *Coverage) Visit(loc Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loc.Block >= 0 && loc.Block < len(c.blocks) && loc.Index >= 0 {
		c.blocks[loc.Block].Set(uint(loc.Index))
	}
}

// Covered returns true if the instruction at loc was executed.
func (c *Coverage) Covered(loc Location) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loc.Block < 0 || loc.Block >= len(c.blocks) || loc.Index < 0 {
		return false
	}
	return c.blocks[loc.Block].Test(uint(loc.Index))
}

// Count returns the number of executed instructions & the total number of
// instructions.
func (c *Coverage) Count() (covered, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.blocks {
		covered += int(b.Count())
		total += int(b.Len())
	}
	return covered, total
}

// Ratio returns the fraction of executed instructions.
func (c *Coverage) Ratio() float64 {
	covered, total := c.Count()
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}

// Merge adds the instructions executed in other.
func (c *Coverage) Merge(other *Coverage) {
	other.mu.Lock()
	blocks := make([]*bitset.BitSet, len(other.blocks))
	for i, b := range other.blocks {
		blocks[i] = b.Clone()
	}
	other.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.blocks {
		if i < len(blocks) {
			c.blocks[i].InPlaceUnion(blocks[i])
		}
	}
}
