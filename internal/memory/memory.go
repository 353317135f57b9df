// Package memory implements the latency-gated memory hierarchy: a Memory
// interface satisfied by RAM and Cache, composable so a Cache's lower level
// is either another Cache or the RAM at the bottom.
package memory

import "github.com/legsim/legsim/internal/stagekind"

// Value is the tagged variant every read/write carries: either a single
// word or a whole line.
type Value struct {
	isLine bool
	word   int32
	line   []int32
}

// WordValue builds a single-word Value.
func WordValue(w int32) Value { return Value{word: w} }

// LineValue builds a whole-line Value.
func LineValue(words []int32) Value { return Value{isLine: true, line: words} }

func (v Value) IsLine() bool { return v.isLine }
func (v Value) Word() int32  { return v.word }
func (v Value) Line() []int32 {
	return v.line
}

// Access enforces the access-latency protocol: the stage attempting access
// owns the level for Latency cycles before a read/write completes; any
// other stage's calls are refused without mutation while owned.
type Access struct {
	Latency            int
	CyclesToCompletion int
	Stage               *stagekind.Type
}

// NewAccess returns an idle access gate with the given per-access latency.
func NewAccess(latency int) *Access {
	return &Access{Latency: latency, CyclesToCompletion: latency}
}

// Attempt records one cycle of progress by attemptStage. It returns true the
// cycle the access completes. A latency of 1 completes on the very first
// attempt: the first tick both claims ownership and decrements the
// countdown to 0.
func (a *Access) Attempt(attemptStage stagekind.Type) bool {
	if a.Stage == nil {
		s := attemptStage
		a.Stage = &s
	} else if *a.Stage != attemptStage {
		return false
	}
	a.CyclesToCompletion--
	return a.CyclesToCompletion <= 0
}

// Reset releases ownership and rearms the countdown. Called on a successful
// access, and on reset_state() after a squash.
func (a *Access) Reset() {
	a.CyclesToCompletion = a.Latency
	a.Stage = nil
}

// Memory is the capability every level of the hierarchy provides.
type Memory interface {
	Read(addr int, stage stagekind.Type, wantLine bool) (Value, bool)
	Write(addr int, value Value, stage stagekind.Type) bool

	// Flash unconditionally writes a program image at addr, bypassing the
	// access-latency protocol. Used only by the simulator before cycling.
	Flash(addr int, words []int32)

	// Reset zeroes all state at this level and recurses to lower levels.
	Reset()
	// ResetState releases any in-flight access ownership without touching
	// stored contents — used after a squash so a killed stage doesn't leave
	// a level permanently owned.
	ResetState()

	// Transparency helpers for the HTTP control surface; deepest level
	// first in every returned slice.
	ViewLine(n int) [][]int32
	ViewAccess() []Access
	ViewSize() []int
}
