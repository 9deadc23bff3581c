package procs

import (
	"github.com/ja7ad/hoststat/pkg/system/util"
	"github.com/ja7ad/hoststat/pkg/types"
)

// Pid identifies a process.
type Pid int

// DiskUsage reports the I/O byte deltas of the last refresh window next to
// the running totals.
type DiskUsage struct {
	ReadBytes         types.Bytes
	TotalReadBytes    types.Bytes
	WrittenBytes      types.Bytes
	TotalWrittenBytes types.Bytes
}

// Process is one tracked entity. It is created on first observation in a
// refresh pass and never deleted by this package; the caller owns eviction.
type Process struct {
	pid    Pid
	name   string
	cmd    []string
	exe    string
	cwd    string
	root   string
	parent Pid

	memory        types.Bytes
	virtualMemory types.Bytes

	// CPU-time differential pair, ticks. Both halves shift together.
	utime    uint64
	stime    uint64
	oldUtime uint64
	oldStime uint64

	// I/O-byte differential pair. Both halves shift together.
	readBytes       uint64
	writtenBytes    uint64
	oldReadBytes    uint64
	oldWrittenBytes uint64

	cpuUsage  float64
	runTime   uint64 // accumulated CPU time, milliseconds
	startTime uint64 // seconds since boot, approximate

	userID           *uint32
	effectiveUserID  *uint32
	groupID          *uint32
	effectiveGroupID *uint32

	status     Status
	statusCode byte
	threadKind ThreadKind

	updated bool
	exists  bool

	statFile     *GuardedFile
	startTimeRaw uint64
}

// NewProcess returns an entity for pid with its flags set for a first cycle.
func NewProcess(pid Pid) *Process {
	return &Process{
		pid:     pid,
		parent:  -1,
		updated: true,
		exists:  true,
	}
}

// SetTime shifts the current user/kernel tick counters into the previous
// slot and stores the new pair.
func (p *Process) SetTime(utime, stime uint64) {
	p.oldUtime = p.utime
	p.oldStime = p.stime
	p.utime = utime
	p.stime = stime
}

// ComputeCPUUsage derives the usage percentage from the CPU-time pair.
// The first observed sample is a warm-up: with no previous counters a rate
// cannot exist, so the stored value stays untouched. maxValue is the
// caller's ceiling, normally 100 times the logical core count, letting a
// multi-threaded process legitimately exceed 100.
func (p *Process) ComputeCPUUsage(totalElapsed, maxValue float64) {
	if p.oldUtime == 0 && p.oldStime == 0 {
		return
	}

	delta := util.SatAddU64(
		util.DeltaU64(p.utime, p.oldUtime),
		util.DeltaU64(p.stime, p.oldStime),
	)
	p.cpuUsage = util.Clamp(util.SafeDiv(float64(delta), totalElapsed)*100, 0, maxValue)
}

// SetIOCounters shifts the I/O pair and stores the new byte totals.
func (p *Process) SetIOCounters(read, written uint64) {
	p.oldReadBytes = p.readBytes
	p.oldWrittenBytes = p.writtenBytes
	p.readBytes = read
	p.writtenBytes = written
}

// DiskUsage is a pure function of the I/O pair: no state transition, safe to
// call any number of times. A zero delta is a valid answer, so no warm-up
// rule applies.
func (p *Process) DiskUsage() DiskUsage {
	return DiskUsage{
		ReadBytes:         types.ToBytes(util.DeltaU64(p.readBytes, p.oldReadBytes)),
		TotalReadBytes:    types.ToBytes(p.readBytes),
		WrittenBytes:      types.ToBytes(util.DeltaU64(p.writtenBytes, p.oldWrittenBytes)),
		TotalWrittenBytes: types.ToBytes(p.writtenBytes),
	}
}

// SwitchUpdated reports whether the entity was touched this cycle and clears
// the flag for the next one.
func (p *Process) SwitchUpdated() bool {
	u := p.updated
	p.updated = false
	return u
}

// SetNonexistent flags the entity as absent from the latest enumeration.
// Called by the owner of the entity map, never by the refresh itself.
func (p *Process) SetNonexistent() { p.exists = false }

func (p *Process) Exists() bool { return p.exists }

func (p *Process) Pid() Pid { return p.pid }

func (p *Process) Name() string { return p.name }

// Cmd returns the command vector, when the acquisition layer could read it.
func (p *Process) Cmd() []string { return p.cmd }

func (p *Process) Exe() string { return p.exe }

func (p *Process) Cwd() string { return p.cwd }

func (p *Process) Root() string { return p.root }

// Parent returns the parent pid when known.
func (p *Process) Parent() (Pid, bool) {
	if p.parent < 0 {
		return 0, false
	}
	return p.parent, true
}

func (p *Process) Memory() types.Bytes { return p.memory }

func (p *Process) VirtualMemory() types.Bytes { return p.virtualMemory }

// CPUUsage returns the percentage computed by the last non-warm-up cycle.
func (p *Process) CPUUsage() float64 { return p.cpuUsage }

// AccumulatedTime returns the total CPU time consumed, in milliseconds.
func (p *Process) AccumulatedTime() uint64 { return p.runTime }

// StartTime returns the approximate start time in seconds since boot.
func (p *Process) StartTime() uint64 { return p.startTime }

func (p *Process) Status() Status { return p.status }

// RawStatus returns the status character exactly as enumerated, including
// codes that mapped to StatusUnknown.
func (p *Process) RawStatus() byte { return p.statusCode }

func (p *Process) ThreadKind() ThreadKind { return p.threadKind }

func (p *Process) UserID() (uint32, bool) { return deref(p.userID) }

func (p *Process) EffectiveUserID() (uint32, bool) { return deref(p.effectiveUserID) }

func (p *Process) GroupID() (uint32, bool) { return deref(p.groupID) }

func (p *Process) EffectiveGroupID() (uint32, bool) { return deref(p.effectiveGroupID) }

func deref(v *uint32) (uint32, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
