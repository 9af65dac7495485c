// Package stats implements the executor's statistics and cost accounting:
// an instruction counter and a cost table accumulated against a configured
// budget, modeled as a small object held by the executor rather than a
// decorator on every instruction.
package stats

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// CostTable maps an instruction opcode to an abstract cost. Opcodes absent
// from the table cost zero.
type CostTable map[wasm.Op]uint64

// DefaultCostTable charges a flat cost of 1 per instruction, which is
// sufficient to bound total instructions executed when no domain-specific
// weighting is configured.
func DefaultCostTable() CostTable {
	t := CostTable{}
	for op := wasm.OpUnreachable; op <= wasm.OpI64TruncSatF64U; op++ {
		t[op] = 1
	}
	return t
}

// Stats is the per-executor cost/statistics object. A nil *Stats is valid
// and counts nothing: Count never fails and every accessor reports 0.
type Stats struct {
	instrCount uint64 // atomic
	costUsed   uint64 // atomic
	costLimit  uint64 // 0 means unlimited
	table      CostTable

	reg          *prometheus.Registry
	instrCounter prometheus.Counter
	costGauge    prometheus.Gauge
	trapCounter  *prometheus.CounterVec
}

// New creates a Stats with the given cost table and budget (0 = unlimited).
// Each Stats owns its own Prometheus registry so that many concurrent
// executors never collide on metric registration.
func New(table CostTable, costLimit uint64) *Stats {
	reg := prometheus.NewRegistry()
	s := &Stats{
		costLimit: costLimit,
		table:     table,
		reg:       reg,
		instrCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wasmcore_instructions_executed_total",
			Help: "Instructions decoded and executed by this call executor.",
		}),
		costGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wasmcore_cost_used",
			Help: "Abstract cost accumulated against the configured budget.",
		}),
		trapCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wasmcore_traps_total",
			Help: "Traps raised by this call executor, by trap code.",
		}, []string{"trap"}),
	}
	reg.MustRegister(s.instrCounter, s.costGauge, s.trapCounter)
	return s
}

// Registry exposes the Prometheus registry for scraping.
func (s *Stats) Registry() *prometheus.Registry { return s.reg }

// Count increments the instruction counter and, if a cost table is
// installed, adds the instruction's cost to the running total. It returns
// a CostLimitExceeded trap if the budget is now exhausted; the caller
// (internal/executor) only invokes this at check points, at least once
// per basic block and once at every call/return.
func (s *Stats) Count(op wasm.Op) error {
	if s == nil {
		return nil
	}
	atomic.AddUint64(&s.instrCount, 1)
	s.instrCounter.Inc()
	if s.table == nil {
		return nil
	}
	cost := s.table[op]
	if cost == 0 {
		return nil
	}
	used := atomic.AddUint64(&s.costUsed, cost)
	s.costGauge.Set(float64(used))
	if s.costLimit != 0 && used > s.costLimit {
		return vmerr.NewTrap(vmerr.CostLimitExceeded)
	}
	return nil
}

func (s *Stats) RecordTrap(code vmerr.TrapCode) {
	if s == nil {
		return
	}
	s.trapCounter.WithLabelValues(code.String()).Inc()
}

// InstructionCount and CostUsed expose a snapshot for host-facing statistics
// APIs.
func (s *Stats) InstructionCount() uint64 {
	if s == nil {
		return 0
	}
	return atomic.LoadUint64(&s.instrCount)
}

func (s *Stats) CostUsed() uint64 {
	if s == nil {
		return 0
	}
	return atomic.LoadUint64(&s.costUsed)
}

func (s *Stats) CostLimit() uint64 {
	if s == nil {
		return 0
	}
	return s.costLimit
}
