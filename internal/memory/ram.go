package memory

import "github.com/legsim/legsim/internal/stagekind"

// RAM is the bottom of the hierarchy: a fixed number of lines, each
// BlockSize words wide, gated by a single shared Access.
type RAM struct {
	lines     int
	blockSize int
	wordSize  int
	access    *Access
	contents  [][]int32
}

// NewRAM builds a RAM of the given shape. lines is the total line count,
// blockSize the words per line, wordSize the bytes per word, latency the
// access-protocol cycle count.
func NewRAM(lines, blockSize, wordSize, latency int) *RAM {
	return &RAM{
		lines:     lines,
		blockSize: blockSize,
		wordSize:  wordSize,
		access:    NewAccess(latency),
		contents:  makeBlankLines(lines, blockSize),
	}
}

func makeBlankLines(lines, blockSize int) [][]int32 {
	contents := make([][]int32, lines)
	for i := range contents {
		contents[i] = make([]int32, blockSize)
	}
	return contents
}

// align rounds addr down to a word boundary.
func (r *RAM) align(addr int) int {
	return addr / r.wordSize * r.wordSize
}

// lineAndOffset maps a byte address to (line index, word offset within the
// line), wrapping modulo the line count so any address maps somewhere.
func (r *RAM) lineAndOffset(addr int) (int, int) {
	aligned := r.align(addr)
	line := (aligned / (r.wordSize * r.blockSize)) % r.lines
	offset := (aligned / r.wordSize) % r.blockSize
	return line, offset
}

func (r *RAM) Read(addr int, stage stagekind.Type, wantLine bool) (Value, bool) {
	if !r.access.Attempt(stage) {
		return Value{}, false
	}
	r.access.Reset()

	line, offset := r.lineAndOffset(addr)
	if wantLine {
		contents := make([]int32, r.blockSize)
		copy(contents, r.contents[line])
		return LineValue(contents), true
	}
	return WordValue(r.contents[line][offset]), true
}

func (r *RAM) Write(addr int, value Value, stage stagekind.Type) bool {
	if !r.access.Attempt(stage) {
		return false
	}
	r.access.Reset()

	line, offset := r.lineAndOffset(addr)
	if value.IsLine() {
		copy(r.contents[line], value.Line())
	} else {
		r.contents[line][offset] = value.Word()
	}
	return true
}

// Flash unconditionally writes program[i] to the word at addr+4*i.
func (r *RAM) Flash(addr int, program []int32) {
	for i, w := range program {
		line, offset := r.lineAndOffset(addr + i*r.wordSize)
		r.contents[line][offset] = w
	}
}

func (r *RAM) Reset() {
	r.contents = makeBlankLines(r.lines, r.blockSize)
	r.access.Reset()
}

func (r *RAM) ResetState() {
	r.access.Reset()
}

func (r *RAM) ViewLine(n int) [][]int32 {
	idx := n % r.lines
	line := make([]int32, r.blockSize)
	copy(line, r.contents[idx])
	return [][]int32{line}
}

func (r *RAM) ViewAccess() []Access {
	return []Access{*r.access}
}

func (r *RAM) ViewSize() []int {
	return []int{r.lines}
}
