package pipeline

import "encoding/json"

// StageResult is what a stage function reports about its progress this
// cycle.
type StageResult int

const (
	// DONE: ready to hand off to the next stage.
	DONE StageResult = iota
	// WAIT: not advancing this tick (hazard, busy memory level, latency).
	WAIT
	// SQUASH: kill this instruction and every upstream one — a taken branch
	// retiring in Writeback.
	SQUASH
	// COMPLETE is a synonym for DONE. No stage function returns it; the
	// head stage drops a retiring instruction on DONE.
	COMPLETE
	// HALT: the processor has executed HLT; stop cycling.
	HALT
)

func (s StageResult) String() string {
	switch s {
	case DONE:
		return "DONE"
	case WAIT:
		return "WAIT"
	case SQUASH:
		return "SQUASH"
	case COMPLETE:
		return "COMPLETE"
	case HALT:
		return "HALT"
	default:
		return "UNKNOWN"
	}
}

func (s StageResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
