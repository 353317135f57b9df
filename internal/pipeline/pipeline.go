// Package pipeline drives the five-stage Fetch/Decode/Execute/Memory/
// Writeback pipeline: per-cycle loading, hazard-gated advancement, squash on
// taken control flow, and halt on HLT.
package pipeline

import (
	"github.com/legsim/legsim/internal/isa"
	"github.com/legsim/legsim/internal/memory"
	"github.com/legsim/legsim/internal/stagekind"
)

// Stage holds at most one in-flight instruction. Stages are driven by index
// from an owning Pipeline rather than a recursive/linked chain of their
// own — an indexed array carries identical semantics with less machinery.
type Stage struct {
	Kind    stagekind.Type
	Status  StageResult
	Instr   *isa.Instruction
	process StageFunc
	isHead  bool
}

// Pipeline owns the five stages plus the shared registers and memory
// hierarchy every stage function operates on.
type Pipeline struct {
	Stages     [5]*Stage
	regs       *isa.Registers
	mem        memory.Memory
	pipelineOn bool
	cycles     int64
	fatalErr   error
}

// NewPipeline wires a fresh pipeline over regs and mem. The pipeline starts
// on: Fetch mints a blank instruction every cycle it is empty.
func NewPipeline(regs *isa.Registers, mem memory.Memory) *Pipeline {
	p := &Pipeline{regs: regs, mem: mem, pipelineOn: true}
	kinds := [5]stagekind.Type{stagekind.Fetch, stagekind.Decode, stagekind.Execute, stagekind.Memory, stagekind.Writeback}
	funcs := [5]StageFunc{fetchStage, decodeStage, executeStage, memoryStage, writebackStage}
	for i := range p.Stages {
		p.Stages[i] = &Stage{
			Kind:    kinds[i],
			Status:  DONE,
			process: funcs[i],
			isHead:  kinds[i] == stagekind.Writeback,
		}
	}
	return p
}

// load pulls an instruction into stage i from stage i-1 when i is empty and
// its predecessor is DONE, or mints a fresh placeholder at Fetch.
func (p *Pipeline) load(i int) {
	s := p.Stages[i]
	if s.Instr != nil {
		return
	}
	if i == 0 {
		if p.pipelineOn {
			s.Instr = isa.NewInstruction()
		}
		return
	}
	prev := p.Stages[i-1]
	if prev.Status == DONE {
		s.Instr = prev.Instr
		prev.Instr = nil
		prev.Status = WAIT
	}
}

// squash marks every held, initialized instruction from stage i upstream to
// Fetch as squashed. Called on the stage that resolved a taken branch; that
// stage's own instruction gets marked too, but it is about to be dropped by
// the DONE/isHead handling anyway.
func (p *Pipeline) squash(i int) {
	for ; i >= 0; i-- {
		s := p.Stages[i]
		if s.Instr != nil && s.Instr.Meta.Initialized {
			s.Instr.Meta.Squashed = true
		}
	}
}

// cycleFrom runs the per-cycle algorithm on stage i and recurses upstream,
// processing downstream before upstream: stage i+1 never observes stage
// i's state change until the following cycle.
func (p *Pipeline) cycleFrom(i int) bool {
	s := p.Stages[i]
	if s.Status == HALT {
		return false
	}

	p.load(i)

	if s.Instr != nil {
		switch {
		case s.Instr.Meta.Squashed:
			s.Status = DONE
		case s.Status != DONE || s.isHead:
			result, err := s.process(p.mem, p.regs, s.Instr)
			if err != nil {
				p.fatalErr = err
				result = HALT
			}
			s.Status = result
		}

		if s.Status == SQUASH {
			p.squash(i)
			s.Status = DONE
		}
		if s.Status == DONE && s.isHead {
			s.Instr = nil
		}
	}

	ok := true
	if i > 0 {
		ok = p.cycleFrom(i - 1)
	}
	if s.isHead {
		p.cycles++
	}
	return ok && s.Status != HALT
}

// Cycle runs one tick of the whole pipeline, driven from Writeback. It
// returns false once HLT has retired (or a fatal error halted the pipeline).
func (p *Pipeline) Cycle() bool {
	return p.cycleFrom(len(p.Stages) - 1)
}

// Run cycles until Cycle reports false.
func (p *Pipeline) Run() {
	for p.Cycle() {
	}
}

// Err returns the fatal error that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.fatalErr
}

// Cycles returns the number of completed cycles.
func (p *Pipeline) Cycles() int64 {
	return p.cycles
}

// Reset drops every in-flight instruction, clears stage status back to DONE,
// resets the register file, and re-enables the pipeline. Memory reset is the
// simulator's responsibility.
func (p *Pipeline) Reset() {
	for _, s := range p.Stages {
		s.Instr = nil
		s.Status = DONE
	}
	p.regs.Reset()
	p.pipelineOn = true
	p.cycles = 0
	p.fatalErr = nil
}

// StageSnapshot is a read-only view of one stage, for the HTTP control
// surface.
type StageSnapshot struct {
	Kind   stagekind.Type
	Status StageResult
	Instr  *isa.Instruction
}

// View returns a snapshot of all five stages, Fetch first.
func (p *Pipeline) View() []StageSnapshot {
	out := make([]StageSnapshot, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = StageSnapshot{Kind: s.Kind, Status: s.Status, Instr: s.Instr}
	}
	return out
}
