package procs

// Status is the lifecycle state of a process. Codes outside the known set
// map to StatusUnknown; the raw code stays available on the entity.
type Status int

const (
	StatusUnknown Status = iota
	StatusIdle
	StatusRun
	StatusSleep
	StatusStop
	StatusZombie
	StatusTracing
	StatusDead
	StatusWakekill
	StatusWaking
	StatusParked
	StatusUninterruptibleDiskSleep
)

// StatusFromCode maps a single status character from the enumeration table.
// No code is ever rejected.
func StatusFromCode(c byte) Status {
	switch c {
	case 'R':
		return StatusRun
	case 'B', 'S':
		return StatusSleep
	case 'I':
		return StatusIdle
	case 'D':
		return StatusUninterruptibleDiskSleep
	case 'Z':
		return StatusZombie
	case 'T':
		return StatusStop
	case 't':
		return StatusTracing
	case 'X', 'x':
		return StatusDead
	case 'K':
		return StatusWakekill
	case 'W':
		return StatusWaking
	case 'P':
		return StatusParked
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRun:
		return "Runnable"
	case StatusSleep:
		return "Sleeping"
	case StatusStop:
		return "Stopped"
	case StatusZombie:
		return "Zombie"
	case StatusTracing:
		return "Tracing"
	case StatusDead:
		return "Dead"
	case StatusWakekill:
		return "Wakekill"
	case StatusWaking:
		return "Waking"
	case StatusParked:
		return "Parked"
	case StatusUninterruptibleDiskSleep:
		return "UninterruptibleDiskSleep"
	default:
		return "Unknown"
	}
}

// ThreadKind tags a process as a kernel or userland task, when the
// enumeration reports it.
type ThreadKind int

const (
	ThreadKindUnknown ThreadKind = iota
	ThreadKindUserland
	ThreadKindKernel
)

func (k ThreadKind) String() string {
	switch k {
	case ThreadKindUserland:
		return "userland"
	case ThreadKindKernel:
		return "kernel"
	default:
		return "unknown"
	}
}
