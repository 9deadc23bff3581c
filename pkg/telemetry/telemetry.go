package telemetry

import (
	"log/slog"
	"time"

	"github.com/ja7ad/hoststat/pkg/system/cpu"
	"github.com/ja7ad/hoststat/pkg/system/procs"
)

// defaultMaxOpenFiles bounds the stat handles cached across refresh cycles
// when the caller does not pick a budget.
const defaultMaxOpenFiles = 512

// Source supplies every raw text blob the system consumes. Acquisition is
// the collaborator's concern; the core only diffs what it is handed.
type Source interface {
	cpu.Source

	// Processes returns the fixed-column process enumeration table.
	Processes() (string, error)

	// Uptime returns seconds since boot.
	Uptime() (uint64, error)
}

// Config tunes a System. The zero value is usable.
type Config struct {
	// MaxOpenFiles caps the per-process stat handles kept open between
	// cycles. Zero means the default; the budget is shared by every refresh
	// pass that runs against this System.
	MaxOpenFiles int64

	// Logger receives debug-level diagnostics. Nil means slog.Default.
	Logger *slog.Logger
}

// System owns the CPU tracker, the process entity map and the shared file
// budget. One refresh pass runs to completion at a time; the System itself
// adds no locking, only the budget counter is safe to share across Systems.
type System struct {
	src    Source
	cpus   *cpu.Tracker
	procs  map[procs.Pid]*procs.Process
	budget *procs.FileBudget
	log    *slog.Logger

	lastProcRefresh time.Time
	updatedCount    int

	now func() time.Time
}

func New(src Source, cfg *Config) *System {
	maxFiles := int64(defaultMaxOpenFiles)
	log := slog.Default()
	if cfg != nil {
		if cfg.MaxOpenFiles > 0 {
			maxFiles = cfg.MaxOpenFiles
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}
	return &System{
		src:    src,
		cpus:   cpu.NewTracker(),
		procs:  make(map[procs.Pid]*procs.Process),
		budget: procs.NewFileBudget(maxFiles),
		log:    log,
		now:    time.Now,
	}
}

// RefreshCPU runs one tick-counter ingestion pass. Rate limiting and the
// first-pass identity resolution live in the tracker.
func (s *System) RefreshCPU(withFrequency bool) {
	s.cpus.Refresh(s.src, withFrequency)
}

// RefreshProcesses reconciles a fresh enumeration against the entity map
// and recomputes per-process CPU usage against the wall time since the
// previous pass. Only entities that received a new sample this pass are
// recomputed; a pid a Selector excluded keeps its last reading. sel narrows
// the pass to specific pids; nil means all. It returns the number of
// entities touched.
func (s *System) RefreshProcesses(sel procs.Selector) int {
	table, err := s.src.Processes()
	if err != nil {
		s.log.Debug("telemetry: process enumeration unavailable", "err", err)
		return 0
	}
	uptime, err := s.src.Uptime()
	if err != nil {
		s.log.Debug("telemetry: uptime unavailable", "err", err)
		uptime = 0
	}

	touched := procs.Refresh(s.procs, table, uptime, sel)

	now := s.now()
	if !s.lastProcRefresh.IsZero() {
		elapsedMs := float64(now.Sub(s.lastProcRefresh).Milliseconds())
		maxValue := 100 * float64(s.coreCount())
		for _, pid := range touched {
			if p := s.procs[pid]; p != nil {
				p.ComputeCPUUsage(elapsedMs, maxValue)
			}
		}
	}
	s.lastProcRefresh = now
	s.updatedCount = len(touched)
	return len(touched)
}

func (s *System) coreCount() int {
	if n := s.cpus.Len(); n > 0 {
		return n
	}
	return 1
}

// SweepStale flags every entity the last refresh did not touch as
// nonexistent and returns their pids. Deletion stays with the caller via
// Remove, so a transient enumeration race costs one flagged cycle, not the
// entity.
func (s *System) SweepStale() []procs.Pid {
	var stale []procs.Pid
	for pid, p := range s.procs {
		if !p.SwitchUpdated() {
			p.SetNonexistent()
			stale = append(stale, pid)
		}
	}
	return stale
}

// Remove evicts one entity from the map. The caller decides when a flagged
// entity is really gone.
func (s *System) Remove(pid procs.Pid) {
	delete(s.procs, pid)
}

// Cpus returns the per-core entities in discovery order.
func (s *System) Cpus() []*cpu.Cpu { return s.cpus.Cpus() }

// GlobalCPUUsage returns the machine-wide utilization in [0, 100].
func (s *System) GlobalCPUUsage() float64 { return s.cpus.GlobalUsage() }

// GlobalRawTimes exposes the aggregate tick totals for callers diffing raw
// elapsed time themselves.
func (s *System) GlobalRawTimes() (total, old uint64) { return s.cpus.GlobalRawTimes() }

// Process returns the tracked entity for pid, or nil.
func (s *System) Process(pid procs.Pid) *procs.Process { return s.procs[pid] }

// Processes returns the live entity map. Treat it as read-only.
func (s *System) Processes() map[procs.Pid]*procs.Process { return s.procs }

// UpdatedCount reports how many entities the last refresh pass touched.
func (s *System) UpdatedCount() int { return s.updatedCount }

// FileBudget returns the shared handle budget, for callers that enrich
// entities with guarded per-process reads.
func (s *System) FileBudget() *procs.FileBudget { return s.budget }
