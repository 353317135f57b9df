package isa

import "testing"

func TestDecodeWord_RegReg(t *testing.T) {
	// ALU ADD, RegReg, reg1=R2, reg2=R3
	raw := int32(0b000<<29 | int32(ADD)<<25 | int32(RegReg)<<22 | 2<<18 | 3<<14)

	instr := NewInstruction()
	if err := DecodeWord(raw, instr); err != nil {
		t.Fatalf("DecodeWord() error = %v", err)
	}

	if instr.Type.Class != ClassALU || instr.Type.ALU != ADD {
		t.Errorf("Type = %+v, want ALU/ADD", instr.Type)
	}
	if instr.AddrMode != RegReg {
		t.Errorf("AddrMode = %v, want RegReg", instr.AddrMode)
	}
	if instr.Reg1 != R2 || instr.Reg2 != R3 || instr.Dest != R2 {
		t.Errorf("Reg1=%v Reg2=%v Dest=%v, want R2/R3/R2", instr.Reg1, instr.Reg2, instr.Dest)
	}
}

func TestDecodeWord_RegImm(t *testing.T) {
	// MOV R1, 42
	raw := int32(0b000<<29 | int32(MOV)<<25 | int32(RegImm)<<22 | 1<<18 | 42)

	instr := NewInstruction()
	if err := DecodeWord(raw, instr); err != nil {
		t.Fatalf("DecodeWord() error = %v", err)
	}

	if instr.Reg1 != R1 || instr.Dest != R1 {
		t.Errorf("Reg1=%v Dest=%v, want R1/R1", instr.Reg1, instr.Dest)
	}
	if instr.Imm != 42 {
		t.Errorf("Imm = %d, want 42", instr.Imm)
	}
}

func TestDecodeWord_CMPDestIsBF(t *testing.T) {
	raw := int32(0b000<<29 | int32(CMP)<<25 | int32(RegReg)<<22 | 1<<18 | 2<<14)

	instr := NewInstruction()
	if err := DecodeWord(raw, instr); err != nil {
		t.Fatalf("DecodeWord() error = %v", err)
	}
	if instr.Dest != BF {
		t.Errorf("Dest = %v, want BF", instr.Dest)
	}
}

func TestDecodeWord_ControlDestIsPC(t *testing.T) {
	raw := int32(0b010<<29 | int32(BEQ)<<25 | int32(Imm)<<22 | 0x100)

	instr := NewInstruction()
	if err := DecodeWord(raw, instr); err != nil {
		t.Fatalf("DecodeWord() error = %v", err)
	}
	if instr.Dest != PC {
		t.Errorf("Dest = %v, want PC", instr.Dest)
	}
	if instr.Imm != 0x100 {
		t.Errorf("Imm = %#x, want 0x100", instr.Imm)
	}
}

func TestDecodeWord_InvalidClass(t *testing.T) {
	classBits := uint32(0b100) // instr_class=4, outside the 0-3 enumeration
	raw := int32(classBits << 29)

	instr := NewInstruction()
	if err := DecodeWord(raw, instr); err == nil {
		t.Fatal("DecodeWord() with instr_class=4 should error")
	}
}

func TestDecodeWord_InvalidAddrMode(t *testing.T) {
	raw := int32(0b000<<29 | int32(MOV)<<25 | 0b111<<22)

	instr := NewInstruction()
	if err := DecodeWord(raw, instr); err == nil {
		t.Fatal("DecodeWord() with addr_mode=0b111 should error")
	}
}

func TestDecodeWord_InvalidALUOpcode(t *testing.T) {
	raw := int32(0b000<<29 | 0b1111<<25 | int32(RegReg)<<22)

	instr := NewInstruction()
	if err := DecodeWord(raw, instr); err == nil {
		t.Fatal("DecodeWord() with opcode=0b1111 should error")
	}
}

func TestRegisters_Scoreboard(t *testing.T) {
	r := NewRegisters()
	if r.IsInUse(R1) {
		t.Fatal("fresh register file should have no in-use bits set")
	}
	r.SetInUse(R1, true)
	if !r.IsInUse(R1) {
		t.Error("SetInUse(R1, true) should mark R1 in use")
	}
	r.ClearInUse()
	if r.IsInUse(R1) {
		t.Error("ClearInUse() should release every register")
	}
}

func TestRegisters_Reset(t *testing.T) {
	r := NewRegisters()
	r.Set(R1, 99)
	r.SetInUse(R2, true)
	r.Reset()

	if r.Get(R1) != 0 {
		t.Errorf("Get(R1) after Reset() = %d, want 0", r.Get(R1))
	}
	if r.IsInUse(R2) {
		t.Error("IsInUse(R2) after Reset() should be false")
	}
}
