package pipeline

import (
	"errors"
	"fmt"

	"github.com/legsim/legsim/internal/isa"
	"github.com/legsim/legsim/internal/memory"
	"github.com/legsim/legsim/internal/stagekind"
)

// StageFunc is the per-stage state transformation. A non-nil error is always
// fatal: the stage reports HALT and the diagnostic is surfaced by the
// simulator.
type StageFunc func(mem memory.Memory, regs *isa.Registers, instr *isa.Instruction) (StageResult, error)

var errDivByZero = errors.New("division or modulo by zero")

// sourceRegisters returns the registers Decode's hazard check must find free
// before reserving dest, per the instruction's addressing mode.
func sourceRegisters(instr *isa.Instruction) []isa.Register {
	switch instr.AddrMode {
	case isa.RegReg, isa.RegRegOff:
		return []isa.Register{instr.Reg1, instr.Reg2}
	case isa.RegImm, isa.Reg:
		return []isa.Register{instr.Reg1}
	default:
		return nil
	}
}

// fetchStage reads the word at PC, advancing PC by one word on success.
func fetchStage(mem memory.Memory, regs *isa.Registers, instr *isa.Instruction) (StageResult, error) {
	pc := regs.Get(isa.PC)
	v, ok := mem.Read(int(pc), stagekind.Fetch, false)
	if !ok {
		return WAIT, nil
	}
	instr.Raw = v.Word()
	instr.Meta.Initialized = true
	instr.Meta.FetchPC = pc
	regs.Set(isa.PC, pc+4)
	return DONE, nil
}

// decodeStage extracts the instruction's fields and enforces the scoreboard
// interlock. It re-runs harmlessly on every WAIT retry: decoding the same raw
// word is idempotent, and dest is only reserved once the hazard clears.
func decodeStage(mem memory.Memory, regs *isa.Registers, instr *isa.Instruction) (StageResult, error) {
	if err := isa.DecodeWord(instr.Raw, instr); err != nil {
		return HALT, &FatalError{PC: instr.Meta.FetchPC, Message: err.Error()}
	}

	if instr.Type.Class == isa.ClassInterrupt {
		instr.Meta.Writeback = false
	}
	if instr.AddrMode == isa.Imm && instr.Type.Class != isa.ClassControl {
		instr.Meta.Writeback = false
	}

	if instr.Type.Class == isa.ClassControl && regs.IsInUse(isa.BF) {
		return WAIT, nil
	}

	for _, src := range sourceRegisters(instr) {
		if regs.IsInUse(src) {
			return WAIT, nil
		}
	}

	regs.SetInUse(instr.Dest, true)
	return DONE, nil
}

// evalALU computes an ALU opcode's result under the (b+i) parenthesization:
// the immediate combines with the second operand before the first is
// applied. NOT is the exception: it inverts a+i.
func evalALU(op isa.ALUType, a, b, imm int32) (int32, error) {
	switch op {
	case isa.MOV:
		return b + imm, nil
	case isa.ADD:
		return a + (b + imm), nil
	case isa.SUB:
		return a - (b + imm), nil
	case isa.IMUL:
		return a * (b + imm), nil
	case isa.IDIV:
		d := b + imm
		if d == 0 {
			return 0, errDivByZero
		}
		return a / d, nil
	case isa.AND:
		return a & (b + imm), nil
	case isa.OR:
		return a | (b + imm), nil
	case isa.XOR:
		return a ^ (b + imm), nil
	case isa.CMP:
		return a - (b + imm), nil
	case isa.MOD:
		d := b + imm
		if d == 0 {
			return 0, errDivByZero
		}
		return a % d, nil
	case isa.NOT:
		return ^(a + imm), nil
	case isa.LSL:
		return a << uint32(b+imm), nil
	case isa.LSR:
		return a >> uint32(b+imm), nil
	default:
		return 0, fmt.Errorf("pipeline: unhandled ALU opcode %s", op)
	}
}

// evalPredicate evaluates a conditional branch's test against BF. CALL and
// RET are unconditional and handled directly by executeStage.
func evalPredicate(c isa.ControlType, bf int32) bool {
	switch c {
	case isa.BEQ:
		return bf == 0
	case isa.BLT:
		return bf < 0
	case isa.BGT:
		return bf > 0
	case isa.BNE:
		return bf != 0
	case isa.B:
		return true
	case isa.BGE:
		return bf >= 0
	case isa.BLE:
		return bf <= 0
	default:
		return false
	}
}

// executeStage evaluates ALU results and control-flow targets. Memory-class
// instructions have nothing to do here; their address arithmetic happens in
// the Memory stage.
func executeStage(mem memory.Memory, regs *isa.Registers, instr *isa.Instruction) (StageResult, error) {
	switch instr.Type.Class {
	case isa.ClassALU:
		result, err := evalALU(instr.Type.ALU, instr.Arg1(regs), instr.Arg2(regs), instr.Imm)
		if err != nil {
			return HALT, &FatalError{PC: instr.Meta.FetchPC, Message: fmt.Sprintf("%s: %s", instr.Type.ALU, err)}
		}
		instr.Meta.Result = result
		return DONE, nil

	case isa.ClassControl:
		switch instr.Type.Control {
		case isa.CALL:
			instr.Meta.Result = instr.Arg1(regs) + instr.Imm
			instr.Meta.AuxDest = isa.LR
			instr.Meta.AuxResult = instr.Meta.FetchPC + 4
			instr.Meta.AuxWriteback = true
		case isa.RET:
			instr.Meta.Result = regs.Get(isa.LR)
		default:
			if evalPredicate(instr.Type.Control, regs.Get(isa.BF)) {
				instr.Meta.Result = instr.Arg1(regs) + instr.Imm
			} else {
				instr.Meta.Writeback = false
			}
		}
		return DONE, nil

	default:
		return DONE, nil
	}
}

// memoryStage issues the load/store for Memory-class instructions. The
// effective address is Arg2(regs)+imm, mirroring the ALU (b+i) convention:
// under RegImm addressing Arg2 is 0, so the address is just imm, and a
// matching STR/LDR pair lands on the same word.
func memoryStage(mem memory.Memory, regs *isa.Registers, instr *isa.Instruction) (StageResult, error) {
	if instr.Type.Class != isa.ClassMemory {
		return DONE, nil
	}

	addr := int(instr.Arg2(regs) + instr.Imm)
	switch instr.Type.Memory {
	case isa.LDR:
		v, ok := mem.Read(addr, stagekind.Memory, false)
		if !ok {
			return WAIT, nil
		}
		instr.Meta.Result = v.Word()
		return DONE, nil
	case isa.STR:
		if !mem.Write(addr, memory.WordValue(instr.Arg1(regs)), stagekind.Memory) {
			return WAIT, nil
		}
		instr.Meta.Writeback = false
		return DONE, nil
	default:
		return DONE, nil
	}
}

// writebackStage commits results, releases the scoreboard, and detects
// control-flow retirement (squash) and HLT.
func writebackStage(mem memory.Memory, regs *isa.Registers, instr *isa.Instruction) (StageResult, error) {
	if instr.Meta.Squashed {
		return DONE, nil
	}

	if instr.Meta.Writeback {
		regs.Set(instr.Dest, instr.Meta.Result)
	}
	regs.SetInUse(instr.Dest, false)

	if instr.Meta.AuxWriteback {
		regs.Set(instr.Meta.AuxDest, instr.Meta.AuxResult)
		regs.SetInUse(instr.Meta.AuxDest, false)
	}

	if instr.Type.Class == isa.ClassControl && instr.Meta.Writeback {
		regs.ClearInUse()
		mem.ResetState()
		return SQUASH, nil
	}
	if instr.Type.Class == isa.ClassInterrupt && instr.Type.Interrupt == isa.HLT {
		return HALT, nil
	}
	return DONE, nil
}
