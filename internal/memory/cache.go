package memory

import (
	"math/bits"

	"github.com/legsim/legsim/internal/stagekind"
)

// cacheLine is one physical slot.
type cacheLine struct {
	addr     int
	valid    bool
	dirty    bool
	tag      int
	uses     int
	contents []int32
}

// location is the tag/set/offset decomposition of an address for a given
// cache shape.
type location struct {
	offset int
	index  int // first physical slot of the containing set
	tag    int
}

// Cache is an N-way set-associative write-back level in front of a lower
// Memory (another Cache, or RAM at the bottom).
//
// Lines is the number of physical line-slots directly, taken at face
// value rather than derived from a word/block-size formula.
type Cache struct {
	lines         int
	blockSize     int
	wordSize      int
	associativity int
	access        *Access
	lower         Memory
	contents      []cacheLine
}

// NewCache builds a cache with lines physical slots, blockSize words per
// line, wordSize bytes per word, the given per-access latency and
// associativity, backed by lower.
func NewCache(lines, blockSize, wordSize, latency, associativity int, lower Memory) *Cache {
	return &Cache{
		lines:         lines,
		blockSize:     blockSize,
		wordSize:      wordSize,
		associativity: associativity,
		access:        NewAccess(latency),
		lower:         lower,
		contents:      makeBlankCacheLines(lines, blockSize),
	}
}

func makeBlankCacheLines(lines, blockSize int) []cacheLine {
	contents := make([]cacheLine, lines)
	for i := range contents {
		contents[i].contents = make([]int32, blockSize)
	}
	return contents
}

func (c *Cache) align(addr int) int {
	return addr / c.wordSize * c.wordSize
}

func (c *Cache) locate(addr int) location {
	aligned := c.align(addr)
	return location{
		offset: (aligned / c.wordSize) % c.blockSize,
		index:  (aligned / (c.wordSize * c.blockSize) * c.associativity) % c.lines,
		tag:    aligned / (c.lines / c.associativity),
	}
}

// findInSet returns the physical slot holding loc's tag, if any is valid and
// matches.
func (c *Cache) findInSet(loc location) (int, bool) {
	for i := loc.index; i < loc.index+c.associativity; i++ {
		if c.contents[i].valid && c.contents[i].tag == loc.tag {
			return i, true
		}
	}
	return 0, false
}

// findReplacement picks a slot to evict: the first invalid slot in the set,
// else the approximate-LFU-with-decay policy.
func (c *Cache) findReplacement(loc location) int {
	for i := loc.index; i < loc.index+c.associativity; i++ {
		if !c.contents[i].valid {
			return i
		}
	}

	least := loc.index
	for i := loc.index; i < loc.index+c.associativity; i++ {
		// Decay so a line pinned by old hits doesn't get stuck forever.
		if c.contents[i].uses > 4 {
			c.contents[i].uses = bits.Len(uint(c.contents[i].uses)) - 1
		}
		if c.contents[i].uses < c.contents[least].uses {
			least = i
		}
	}
	return least
}

// writeBack flushes slot's dirty contents to the lower level.
func (c *Cache) writeBack(slot int, stage stagekind.Type) bool {
	contents := make([]int32, len(c.contents[slot].contents))
	copy(contents, c.contents[slot].contents)
	if !c.lower.Write(c.contents[slot].addr, LineValue(contents), stage) {
		return false
	}
	c.contents[slot].dirty = false
	c.contents[slot].uses = 0
	return true
}

func (c *Cache) fill(addr, slot int, loc location, value Value, dirty bool) {
	line := &c.contents[slot]
	if value.IsLine() {
		copy(line.contents, value.Line())
	} else {
		line.contents[loc.offset] = value.Word()
	}
	line.addr = addr
	line.valid = true
	line.dirty = dirty
	line.tag = loc.tag
	line.uses++
}

func (c *Cache) Read(addr int, stage stagekind.Type, wantLine bool) (Value, bool) {
	if !c.access.Attempt(stage) {
		return Value{}, false
	}

	loc := c.locate(addr)

	if slot, ok := c.findInSet(loc); ok {
		c.access.Reset()
		c.contents[slot].uses++
		return readSlot(c.contents[slot], loc, wantLine), true
	}

	slot := c.findReplacement(loc)
	if c.contents[slot].dirty && !c.writeBack(slot, stage) {
		return Value{}, false
	}

	lowerValue, ok := c.lower.Read(addr, stage, true)
	if !ok {
		return Value{}, false
	}
	c.fill(addr, slot, loc, lowerValue, false)
	c.access.Reset()
	return readSlot(c.contents[slot], loc, wantLine), true
}

func readSlot(line cacheLine, loc location, wantLine bool) Value {
	if wantLine {
		contents := make([]int32, len(line.contents))
		copy(contents, line.contents)
		return LineValue(contents)
	}
	return WordValue(line.contents[loc.offset])
}

func (c *Cache) Write(addr int, value Value, stage stagekind.Type) bool {
	if !c.access.Attempt(stage) {
		return false
	}

	loc := c.locate(addr)

	slot, found := c.findInSet(loc)
	if !found {
		slot = c.findReplacement(loc)
	}

	if c.contents[slot].dirty && c.contents[slot].tag != loc.tag {
		if !c.writeBack(slot, stage) {
			return false
		}
	}

	// Write-allocate: a partial-word write to a line that isn't already
	// ours must not fabricate the rest of the line's bytes, so pull the
	// current contents from below first.
	if c.contents[slot].tag != loc.tag || !c.contents[slot].valid {
		lowerValue, ok := c.lower.Read(addr, stage, true)
		if !ok {
			return false
		}
		c.fill(addr, slot, loc, lowerValue, false)
	}

	c.fill(addr, slot, loc, value, true)
	c.access.Reset()
	return true
}

func (c *Cache) Flash(addr int, words []int32) {
	c.lower.Flash(addr, words)
}

func (c *Cache) Reset() {
	c.contents = makeBlankCacheLines(c.lines, c.blockSize)
	c.access.Reset()
	c.lower.Reset()
}

func (c *Cache) ResetState() {
	c.access.Reset()
	c.lower.ResetState()
}

func (c *Cache) ViewLine(n int) [][]int32 {
	lines := c.lower.ViewLine(n)
	idx := n
	if idx >= c.lines {
		idx = 0
	}
	contents := make([]int32, len(c.contents[idx].contents))
	copy(contents, c.contents[idx].contents)
	return append(lines, contents)
}

func (c *Cache) ViewAccess() []Access {
	return append(c.lower.ViewAccess(), *c.access)
}

func (c *Cache) ViewSize() []int {
	return append(c.lower.ViewSize(), c.lines)
}
