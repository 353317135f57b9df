// Package assembler translates LEG assembly text into packed 32-bit
// instruction words. It is a line-oriented, hand-written scanner: no
// parser-combinator library appears anywhere in the retrieved corpus, so
// this is built directly on strings/strconv (see DESIGN.md).
package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/legsim/legsim/internal/isa"
)

// mnemonic pairs a textual opcode with its class/opcode bits. Order within a
// class matters: entries that are a prefix of another (B is a prefix of
// BEQ/BLT/...) must be tried last.
type mnemonic struct {
	text   string
	class  int32
	opcode int32
}

var aluMnemonics = []mnemonic{
	{"MOV", 0, int32(isa.MOV)}, {"ADD", 0, int32(isa.ADD)}, {"SUB", 0, int32(isa.SUB)},
	{"IMUL", 0, int32(isa.IMUL)}, {"IDIV", 0, int32(isa.IDIV)}, {"AND", 0, int32(isa.AND)},
	{"OR", 0, int32(isa.OR)}, {"XOR", 0, int32(isa.XOR)}, {"CMP", 0, int32(isa.CMP)},
	{"MOD", 0, int32(isa.MOD)}, {"NOT", 0, int32(isa.NOT)}, {"LSL", 0, int32(isa.LSL)},
	{"LSR", 0, int32(isa.LSR)},
}

var memoryMnemonics = []mnemonic{
	{"LDR", 1, int32(isa.LDR)}, {"STR", 1, int32(isa.STR)},
}

// BEQ/BLT/BGT/BNE/BGE/BLE/CALL/RET must all be tried before the bare "B",
// since "B" is a textual prefix of several of them.
var controlMnemonics = []mnemonic{
	{"BEQ", 2, int32(isa.BEQ)}, {"BLT", 2, int32(isa.BLT)}, {"BGT", 2, int32(isa.BGT)},
	{"BNE", 2, int32(isa.BNE)}, {"BGE", 2, int32(isa.BGE)}, {"BLE", 2, int32(isa.BLE)},
	{"CALL", 2, int32(isa.CALL)}, {"RET", 2, int32(isa.RET)},
	{"B", 2, int32(isa.B)},
}

var interruptMnemonics = []mnemonic{
	{"NOP", 3, int32(isa.NOP)}, {"HLT", 3, int32(isa.HLT)},
}

// registerTokens maps assembly register mnemonics to their index. An
// operand matches only when it equals a name exactly, so R10/R11 never
// match R1 whatever the order.
var registerTokens = []struct {
	text string
	reg  isa.Register
}{
	{"R10", isa.R10}, {"R11", isa.R11},
	{"R0", isa.R0}, {"R1", isa.R1}, {"R2", isa.R2}, {"R3", isa.R3}, {"R4", isa.R4},
	{"R5", isa.R5}, {"R6", isa.R6}, {"R7", isa.R7}, {"R8", isa.R8}, {"R9", isa.R9},
	{"SP", isa.SP}, {"BF", isa.BF}, {"LR", isa.LR}, {"PC", isa.PC},
}

// ParseError marks a line the scanner could not recognize.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("assembler: line %d (%q): %s", e.Line, e.Text, e.Msg)
}

// Assemble translates LEG source into one packed word per non-blank line.
func Assemble(src string) ([]int32, error) {
	var words []int32
	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		word, err := assembleLine(trimmed)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Text: trimmed, Msg: err.Error()}
		}
		words = append(words, word)
	}
	return words, nil
}

func assembleLine(line string) (int32, error) {
	upper := strings.ToUpper(line)

	base, _, rest, err := matchMnemonic(upper)
	if err != nil {
		return 0, err
	}

	rest = strings.ReplaceAll(rest, " ", "")
	rest = strings.ReplaceAll(rest, "\t", "")

	operands, err := parseOperands(rest)
	if err != nil {
		return 0, err
	}

	return encodeOperands(base, operands)
}

// matchMnemonic finds the mnemonic at the start of line, trying each class's
// table in turn (ALU, Memory, Control, Interrupt — mirroring the reference
// assembler's match order) and returns the base instruction word (class and
// opcode bits set), the matched class, and the unconsumed remainder.
func matchMnemonic(line string) (int32, isa.Class, string, error) {
	tables := []struct {
		entries []mnemonic
		class   isa.Class
		bits    int32
	}{
		{aluMnemonics, isa.ClassALU, 0b000},
		{memoryMnemonics, isa.ClassMemory, 0b001},
		{controlMnemonics, isa.ClassControl, 0b010},
		{interruptMnemonics, isa.ClassInterrupt, 0b011},
	}

	for _, tbl := range tables {
		for _, m := range tbl.entries {
			if strings.HasPrefix(line, m.text) {
				base := tbl.bits<<29 | m.opcode<<25
				return base, tbl.class, line[len(m.text):], nil
			}
		}
	}
	return 0, 0, "", fmt.Errorf("unrecognized mnemonic")
}

type operand struct {
	isReg bool
	reg   isa.Register
	imm   int32
}

func parseOperands(rest string) ([]operand, error) {
	if rest == "" {
		return nil, nil
	}
	parts := strings.Split(rest, ",")
	operands := make([]operand, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("empty operand")
		}
		op, err := parseOperand(p)
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
	}
	return operands, nil
}

func parseOperand(tok string) (operand, error) {
	for _, r := range registerTokens {
		if tok == r.text {
			return operand{isReg: true, reg: r.reg}, nil
		}
	}

	imm, err := parseImmediate(tok)
	if err != nil {
		return operand{}, fmt.Errorf("invalid operand %q: %w", tok, err)
	}
	return operand{imm: imm}, nil
}

func parseImmediate(tok string) (int32, error) {
	body := tok
	negative := false
	if strings.HasPrefix(body, "-") {
		negative = true
		body = body[1:]
	}

	var v int64
	var err error
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		digits := strings.ReplaceAll(body[2:], "_", "")
		v, err = strconv.ParseInt(digits, 16, 64)
	} else {
		digits := strings.ReplaceAll(body, "_", "")
		v, err = strconv.ParseInt(digits, 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if negative {
		v = -v
	}
	return int32(v), nil
}

// encodeOperands deduces addr_mode from operand count and kind. This uses
// the decoder's own Imm(0b011)/Reg(0b100) tags for the single-operand
// forms, so assembled programs actually decode.
func encodeOperands(base int32, operands []operand) (int32, error) {
	switch len(operands) {
	case 0:
		// Reuses the Imm addressing slot with a zero immediate, the same tag
		// a bare-immediate branch target decodes under, so RET/NOP/HLT carry
		// no register operands for Decode's hazard check to wait on.
		return base | 0b011<<22, nil
	case 1:
		op := operands[0]
		if op.isReg {
			return base | 0b100<<22 | int32(op.reg)<<18, nil
		}
		return base | 0b011<<22 | (op.imm & 0x3FFFFF), nil
	case 2:
		a, b := operands[0], operands[1]
		switch {
		case a.isReg && b.isReg:
			return base | 0b000<<22 | int32(a.reg)<<18 | int32(b.reg)<<14, nil
		case a.isReg && !b.isReg:
			return base | 0b010<<22 | int32(a.reg)<<18 | (b.imm & 0xFFF), nil
		default:
			return 0, fmt.Errorf("two-operand form must be reg,reg or reg,imm")
		}
	default:
		return 0, fmt.Errorf("unsupported operand count %d", len(operands))
	}
}
