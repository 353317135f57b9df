// Package predictor implements a gshare-style branch predictor. It is not
// wired into the pipeline — branch resolution happens in Writeback, after
// the outcome is already known — but is kept as a component with a stable
// interface for future integration ahead of Decode.
package predictor

const (
	globalHistoryBits = 16
	counterBits       = 2
	tableLength       = 1 << globalHistoryBits
	counterMax        = 1<<counterBits - 1
	tableMask         = tableLength - 1
)

// Predictor is a gshare branch predictor: a global history register XORed
// against the PC indexes a table of 2-bit saturating counters.
type Predictor struct {
	globalHistory uint32
	table         []uint8
}

// New returns a predictor with every counter initialized to the saturated
// "taken" value.
func New() *Predictor {
	table := make([]uint8, tableLength)
	for i := range table {
		table[i] = counterMax
	}
	return &Predictor{table: table}
}

func (p *Predictor) tableIndex(pc uint32) uint32 {
	return (pc ^ p.globalHistory) & tableMask
}

// Predict reports whether the branch at pc is predicted taken.
func (p *Predictor) Predict(pc uint32) bool {
	return p.table[p.tableIndex(pc)] > counterMax/2
}

// Update trains the predictor with the branch's actual outcome.
func (p *Predictor) Update(pc uint32, taken bool) {
	idx := p.tableIndex(pc)
	if taken {
		if p.table[idx] < counterMax {
			p.table[idx]++
		}
		p.globalHistory = (p.globalHistory<<1 | 1) & tableMask
	} else {
		if p.table[idx] > 0 {
			p.table[idx]--
		}
		p.globalHistory = (p.globalHistory << 1) & tableMask
	}
}
