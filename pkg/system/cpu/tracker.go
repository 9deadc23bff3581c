package cpu

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// MinimumUpdateInterval is the shortest wall-clock gap between two tick
// re-reads. Sampling faster than this yields deltas dominated by noise, so
// the tracker skips the read instead.
const MinimumUpdateInterval = 200 * time.Millisecond

// Source supplies the raw text the tracker consumes. Implementations belong
// to the acquisition layer; any error degrades to "no update this cycle".
type Source interface {
	// Stat returns the tick-counter table: one aggregate "cpu" line plus one
	// "cpuN" line per core. Fields are whitespace-delimited in the order
	// user nice system idle iowait irq softirq steal guest guest_nice;
	// trailing fields may be absent.
	Stat() (string, error)

	// CPUInfo returns the key:value hardware description blob (CPUs, Vendor,
	// Model). Consulted once, on the first pass only.
	CPUInfo() (string, error)

	// Frequency reports the clock of the given core in MHz, best effort.
	Frequency(core int) (uint64, error)
}

// Tracker owns the aggregate usage tracker and the ordered per-core list.
// A zero count of cores means no ingestion pass has run yet.
type Tracker struct {
	global     UsageTracker
	cpus       []*Cpu
	lastUpdate time.Time

	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Refresh ingests one pass from src. The first pass resolves vendor/model
// identity and constructs the per-core entities; later passes only update
// usage, and are skipped entirely when called again within
// MinimumUpdateInterval. Frequency refresh is best effort and never fails
// the pass.
func (t *Tracker) Refresh(src Source, withFrequency bool) {
	needUpdate := t.lastUpdate.IsZero() || t.now().Sub(t.lastUpdate) >= MinimumUpdateInterval

	first := len(t.cpus) == 0
	var vendors map[int]vendorInfo
	if first {
		info, err := src.CPUInfo()
		if err != nil {
			slog.Debug("cpu: hardware info unavailable", "err", err)
		} else {
			vendors = parseCPUInfo(info)
		}
	}

	if needUpdate || first {
		stat, err := src.Stat()
		if err != nil {
			slog.Debug("cpu: tick counters unavailable", "err", err)
			stat = ""
		}
		t.lastUpdate = t.now()

		for _, line := range strings.Split(stat, "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 || !strings.HasPrefix(fields[0], "cpu") {
				continue
			}
			ticks := parseTicks(fields[1:])

			// Aggregate row feeds its own tracker.
			if fields[0] == "cpu" {
				t.global.Update(ticks)
				continue
			}

			idx, err := strconv.Atoi(fields[0][3:])
			if err != nil {
				continue
			}
			if first {
				v := vendors[idx]
				t.cpus = append(t.cpus, newCpu(fields[0], v.vendor, v.brand, ticks))
			} else if idx < len(t.cpus) {
				t.cpus[idx].usage.Update(ticks)
			}
		}
	}

	if withFrequency {
		for i, c := range t.cpus {
			mhz, err := src.Frequency(i)
			if err != nil || mhz == 0 {
				continue // keep the previous value
			}
			c.frequency = mhz
		}
	}
}

// parseTicks converts whitespace-split counter fields into a Ticks sample.
// Missing or malformed fields parse as zero.
func parseTicks(fields []string) Ticks {
	var v [10]uint64
	for i := 0; i < len(v) && i < len(fields); i++ {
		v[i], _ = strconv.ParseUint(fields[i], 10, 64)
	}
	return Ticks{
		User:      v[0],
		Nice:      v[1],
		System:    v[2],
		Idle:      v[3],
		IOWait:    v[4],
		IRQ:       v[5],
		SoftIRQ:   v[6],
		Steal:     v[7],
		Guest:     v[8],
		GuestNice: v[9],
	}
}

// Cpus returns the per-core entities in discovery order.
func (t *Tracker) Cpus() []*Cpu { return t.cpus }

// GlobalUsage returns the machine-wide utilization percentage in [0, 100].
func (t *Tracker) GlobalUsage() float64 { return t.global.Usage() }

// GlobalRawTimes returns the aggregate total and previous-total tick counts.
func (t *Tracker) GlobalRawTimes() (total, old uint64) {
	return t.global.RawTimes()
}

func (t *Tracker) Len() int { return len(t.cpus) }

func (t *Tracker) IsEmpty() bool { return len(t.cpus) == 0 }
