package cpu

import "github.com/ja7ad/hoststat/pkg/system/util"

// Ticks is one raw tick-bucket sample as supplied by the acquisition layer.
// All counters are monotonic and measured in clock ticks.
type Ticks struct {
	User      uint64
	Nice      uint64
	System    uint64
	Idle      uint64
	IOWait    uint64
	IRQ       uint64
	SoftIRQ   uint64
	Steal     uint64
	Guest     uint64
	GuestNice uint64
}

// tickSample stores one ingested sample with disjoint components. Derived
// rollups are always recomputed, never cached.
type tickSample struct {
	user      uint64
	nice      uint64
	system    uint64
	idle      uint64
	iowait    uint64
	irq       uint64
	softirq   uint64
	steal     uint64
	guest     uint64
	guestNice uint64
}

func (s *tickSample) set(t Ticks) {
	// guest is already accounted in user, guest_nice in nice.
	s.user = util.DeltaU64(t.User, t.Guest)
	s.nice = util.DeltaU64(t.Nice, t.GuestNice)
	s.system = t.System
	s.idle = t.Idle
	s.iowait = t.IOWait
	s.irq = t.IRQ
	s.softirq = t.SoftIRQ
	s.steal = t.Steal
	s.guest = t.Guest
	s.guestNice = t.GuestNice
}

func (s *tickSample) workTime() uint64 {
	return util.SatAddU64(s.user, s.nice)
}

func (s *tickSample) systemTime() uint64 {
	return util.SatAddU64(util.SatAddU64(s.system, s.irq), s.softirq)
}

func (s *tickSample) idleTime() uint64 {
	return util.SatAddU64(s.idle, s.iowait)
}

func (s *tickSample) virtualTime() uint64 {
	return util.SatAddU64(s.guest, s.guestNice)
}

func (s *tickSample) totalTime() uint64 {
	total := util.SatAddU64(s.workTime(), s.systemTime())
	total = util.SatAddU64(total, s.idleTime())
	total = util.SatAddU64(total, s.virtualTime())
	return util.SatAddU64(total, s.steal)
}

// UsageTracker derives a utilization percentage from a pair of consecutive
// tick samples. The percentage is recomputed in full on every update.
type UsageTracker struct {
	percent      float64
	oldVals      tickSample
	newVals      tickSample
	totalTime    uint64
	oldTotalTime uint64
}

// Update shifts the current sample into the previous slot, ingests t and
// recomputes the percentage. Steal and guest time count as busy cycles; the
// result is clamped to [0, 100].
func (u *UsageTracker) Update(t Ticks) {
	u.oldVals = u.newVals
	u.newVals.set(t)

	u.totalTime = u.newVals.totalTime()
	u.oldTotalTime = u.oldVals.totalTime()

	nicePeriod := util.DeltaU64(u.newVals.nice, u.oldVals.nice)
	userPeriod := util.DeltaU64(u.newVals.user, u.oldVals.user)
	stealPeriod := util.DeltaU64(u.newVals.steal, u.oldVals.steal)
	virtualPeriod := util.DeltaU64(u.newVals.virtualTime(), u.oldVals.virtualTime())
	systemPeriod := util.DeltaU64(u.newVals.systemTime(), u.oldVals.systemTime())

	// Floor of 1 so a zero-tick interval cannot divide by zero.
	total := float64(util.DeltaU64(u.totalTime, u.oldTotalTime))
	if total < 1 {
		total = 1
	}

	busy := nicePeriod + userPeriod + systemPeriod + stealPeriod + virtualPeriod
	u.percent = util.Clamp(float64(busy)/total*100, 0, 100)
}

// seed stores t as the current sample without deriving a percentage. A
// freshly discovered core has no previous pair to diff against, so its
// first reported usage stays 0 until the next update.
func (u *UsageTracker) seed(t Ticks) {
	u.newVals.set(t)
}

// Usage returns the utilization percentage of the last update, in [0, 100].
func (u *UsageTracker) Usage() float64 { return u.percent }

// RawTimes returns the grand totals of the current and previous samples,
// for callers that need the raw elapsed-tick delta.
func (u *UsageTracker) RawTimes() (total, old uint64) {
	return u.totalTime, u.oldTotalTime
}

// Cpu is one logical core: immutable identity plus its usage tracker.
type Cpu struct {
	usage     UsageTracker
	name      string
	frequency uint64
	vendorID  string
	brand     string
}

func newCpu(name, vendorID, brand string, t Ticks) *Cpu {
	c := &Cpu{
		name:     name,
		vendorID: vendorID,
		brand:    brand,
	}
	c.usage.seed(t)
	return c
}

func (c *Cpu) Name() string { return c.name }

// Usage returns the core's utilization percentage from the latest sample.
func (c *Cpu) Usage() float64 { return c.usage.Usage() }

// Frequency returns the core clock in MHz, 0 when unavailable.
func (c *Cpu) Frequency() uint64 { return c.frequency }

func (c *Cpu) VendorID() string { return c.vendorID }

func (c *Cpu) Brand() string { return c.brand }
