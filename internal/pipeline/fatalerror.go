package pipeline

import "fmt"

// FatalError is a non-recoverable condition raised by a stage function: a
// misdecode, or an ALU opcode with an undefined result (division or modulo
// by zero). It carries the PC of the offending instruction so the caller
// can report where the processor stopped.
type FatalError struct {
	PC      int32
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("pipeline: fatal at pc %#08x: %s", uint32(e.PC), e.Message)
}
