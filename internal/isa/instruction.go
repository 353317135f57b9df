package isa

import "fmt"

// Class is the 3-bit instr_class field occupying bits 31..29 of the word.
type Class int

const (
	ClassALU Class = iota
	ClassMemory
	ClassControl
	ClassInterrupt
)

// AddrMode is the 3-bit addressing-mode field occupying bits 24..22.
type AddrMode int

const (
	RegReg AddrMode = iota
	RegRegOff
	RegImm
	Imm
	Reg
)

func AddrModeFromInt(v int32) (AddrMode, error) {
	switch v {
	case 0b000:
		return RegReg, nil
	case 0b001:
		return RegRegOff, nil
	case 0b010:
		return RegImm, nil
	case 0b011:
		return Imm, nil
	case 0b100:
		return Reg, nil
	default:
		return 0, fmt.Errorf("isa: invalid addr_mode %#x", v)
	}
}

// ALUType enumerates the ALU-class opcodes.
type ALUType int

const (
	MOV ALUType = iota
	ADD
	SUB
	IMUL
	IDIV
	AND
	OR
	XOR
	CMP
	MOD
	NOT
	LSL
	LSR
)

var aluNames = [...]string{"MOV", "ADD", "SUB", "IMUL", "IDIV", "AND", "OR", "XOR", "CMP", "MOD", "NOT", "LSL", "LSR"}

func (a ALUType) String() string { return nameOrFallback(aluNames[:], int(a), "ALU") }

func ALUTypeFromInt(v int32) (ALUType, error) {
	if v < 0 || int(v) >= len(aluNames) {
		return 0, fmt.Errorf("isa: invalid ALU opcode %#x", v)
	}
	return ALUType(v), nil
}

// MemoryType enumerates the Memory-class opcodes.
type MemoryType int

const (
	LDR MemoryType = iota
	STR
)

var memNames = [...]string{"LDR", "STR"}

func (m MemoryType) String() string { return nameOrFallback(memNames[:], int(m), "Memory") }

func MemoryTypeFromInt(v int32) (MemoryType, error) {
	if v < 0 || int(v) >= len(memNames) {
		return 0, fmt.Errorf("isa: invalid memory opcode %#x", v)
	}
	return MemoryType(v), nil
}

// ControlType enumerates the Control-class opcodes. CALL and RET (7, 8)
// extend the base seven-entry branch set with subroutine linkage. They are
// decoded like the conditional branches and have their own Execute cases.
type ControlType int

const (
	BEQ ControlType = iota
	BLT
	BGT
	BNE
	B
	BGE
	BLE
	CALL
	RET
)

var ctrlNames = [...]string{"BEQ", "BLT", "BGT", "BNE", "B", "BGE", "BLE", "CALL", "RET"}

func (c ControlType) String() string { return nameOrFallback(ctrlNames[:], int(c), "Control") }

func ControlTypeFromInt(v int32) (ControlType, error) {
	if v < 0 || int(v) >= len(ctrlNames) {
		return 0, fmt.Errorf("isa: invalid control opcode %#x", v)
	}
	return ControlType(v), nil
}

// InterruptType enumerates the Interrupt-class opcodes.
type InterruptType int

const (
	NOP InterruptType = iota
	HLT
)

var intrNames = [...]string{"NOP", "HLT"}

func (i InterruptType) String() string { return nameOrFallback(intrNames[:], int(i), "Interrupt") }

func InterruptTypeFromInt(v int32) (InterruptType, error) {
	if v < 0 || int(v) >= len(intrNames) {
		return 0, fmt.Errorf("isa: invalid interrupt opcode %#x", v)
	}
	return InterruptType(v), nil
}

func nameOrFallback(names []string, i int, kind string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, i)
	}
	return names[i]
}

// InstrType tags which opcode table a decoded instruction belongs to.
type InstrType struct {
	Class     Class
	ALU       ALUType
	Memory    MemoryType
	Control   ControlType
	Interrupt InterruptType
}

func (t InstrType) String() string {
	switch t.Class {
	case ClassALU:
		return t.ALU.String()
	case ClassMemory:
		return t.Memory.String()
	case ClassControl:
		return t.Control.String()
	case ClassInterrupt:
		return t.Interrupt.String()
	default:
		return "Invalid"
	}
}

// InstrMeta carries per-instruction pipeline bookkeeping that isn't part of
// the decoded word itself.
type InstrMeta struct {
	Writeback   bool // default true; suppressed for stores, untaken branches
	Squashed    bool
	Result      int32
	Initialized bool  // true once Fetch has successfully read the word
	FetchPC     int32 // PC value at the cycle this instruction was fetched

	// AuxWriteback commits a second register alongside Dest/Result, needed
	// only by CALL to land a return address in LR in the same cycle it
	// jumps PC.
	AuxWriteback bool
	AuxDest      Register
	AuxResult    int32
}

// Instruction is one in-flight decoded instruction plus its meta state.
type Instruction struct {
	Raw      int32
	Type     InstrType
	AddrMode AddrMode
	Reg1     Register
	Reg2     Register
	Dest     Register
	Imm      int32
	Meta     InstrMeta
}

// NewInstruction returns a fresh placeholder instruction, as minted by Fetch
// at the head of an empty pipeline. It is not Initialized until Fetch reads
// a real word into it.
func NewInstruction() *Instruction {
	return &Instruction{
		Meta: InstrMeta{Writeback: true},
	}
}

// Arg1 returns the first operand's value for this instruction's addressing
// mode: the contents of Reg1 for every register-bearing mode, 0 for Imm.
func (i *Instruction) Arg1(regs *Registers) int32 {
	switch i.AddrMode {
	case RegReg, RegRegOff, RegImm, Reg:
		return regs.Get(i.Reg1)
	default: // Imm
		return 0
	}
}

// Arg2 returns the second operand's value: the contents of Reg2 under
// RegReg/RegRegOff, 0 otherwise (RegImm, Imm, and Reg carry no second
// register).
func (i *Instruction) Arg2(regs *Registers) int32 {
	switch i.AddrMode {
	case RegReg, RegRegOff:
		return regs.Get(i.Reg2)
	default:
		return 0
	}
}
