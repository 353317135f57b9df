// Package simulator is the top-level owner: it builds the RAM+Cache chain,
// the register file, and the pipeline, and exposes the flash/step/run/reset
// and view operations the HTTP control surface wraps.
package simulator

import (
	"fmt"
	"os"
	"sync"

	"github.com/legsim/legsim/internal/assembler"
	"github.com/legsim/legsim/internal/config"
	"github.com/legsim/legsim/internal/isa"
	"github.com/legsim/legsim/internal/memory"
	"github.com/legsim/legsim/internal/pipeline"
)

// Simulator wraps the whole core behind a single mutex, so the HTTP layer
// never needs its own lock around a request: holding it for the duration
// of Run is intentional, since no two requests should mutate the
// simulator at once.
type Simulator struct {
	mu sync.Mutex

	cfg   *config.Config
	ram   *memory.RAM
	cache *memory.Cache
	regs  *isa.Registers
	pipe  *pipeline.Pipeline
}

// New builds a simulator from cfg. If cfg.ProgramPath is set, its contents
// are assembled and flashed at address 0 before returning.
func New(cfg *config.Config) (*Simulator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil configuration provided")
	}

	ram := memory.NewRAM(cfg.RAMLines, cfg.RAMBlockSize, cfg.RAMWordSize, cfg.RAMLatency)
	cache := memory.NewCache(cfg.CacheLines, cfg.CacheBlockSize, cfg.RAMWordSize, cfg.CacheLatency, cfg.CacheAssociativity, ram)
	regs := isa.NewRegisters()

	sim := &Simulator{
		cfg:   cfg,
		ram:   ram,
		cache: cache,
		regs:  regs,
		pipe:  pipeline.NewPipeline(regs, cache),
	}

	if cfg.ProgramPath != "" {
		src, err := os.ReadFile(cfg.ProgramPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read program %s: %w", cfg.ProgramPath, err)
		}
		if err := sim.Flash(string(src)); err != nil {
			return nil, fmt.Errorf("failed to flash startup program: %w", err)
		}
	}

	return sim, nil
}

// Step runs a single cycle and reports whether the pipeline is still live.
func (s *Simulator) Step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.Cycle()
}

// Run cycles until HLT retires or a fatal error halts the pipeline.
func (s *Simulator) Run() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipe.Run()
}

// Reset drops in-flight state, zeroes registers, and zeroes every memory
// level.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipe.Reset()
	s.cache.Reset()
}

// Flash assembles source and writes the resulting program image to address
// 0, bypassing the access-latency protocol.
func (s *Simulator) Flash(source string) error {
	words, err := assembler.Assemble(source)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Flash(0, words)
	return nil
}

// Err returns the fatal error that halted the pipeline, if any.
func (s *Simulator) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.Err()
}

// Cycles returns the number of cycles executed since the last reset.
func (s *Simulator) Cycles() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.Cycles()
}

// Registers returns a snapshot of the register file.
func (s *Simulator) Registers() [16]int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs.Values
}

// RegisterStatus returns a snapshot of the scoreboard.
func (s *Simulator) RegisterStatus() [16]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs.InUse
}

// MemorySize returns the line count at every level, RAM first.
func (s *Simulator) MemorySize() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.ViewSize()
}

// MemoryLine returns line n's contents at every level, RAM first.
func (s *Simulator) MemoryLine(n int) [][]int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.ViewLine(n)
}

// Pipeline returns a snapshot of all five stages, Fetch first.
func (s *Simulator) Pipeline() []pipeline.StageSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.View()
}
