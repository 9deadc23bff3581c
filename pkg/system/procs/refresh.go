package procs

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ja7ad/hoststat/pkg/types"
)

// Record is one structured row of the process enumeration table. ParseRow
// fills it without touching any entity state so the parse stays independently
// testable.
type Record struct {
	Pid        Pid
	UserID     uint32
	GroupID    uint32
	ThreadKind ThreadKind
	Status     Status
	StatusCode byte
	Affinity   int // core index the task last ran on, -1 when unreported
	Time       uint64
	Memory     types.Bytes
	Name       string
}

// Selector restricts a refresh pass to a subset of pids. A nil Selector
// selects every enumerated process.
type Selector []Pid

func (s Selector) match(pid Pid) bool {
	if s == nil {
		return true
	}
	for _, want := range s {
		if want == pid {
			return true
		}
	}
	return false
}

// Fixed column offsets of the enumeration table:
//
//	PID   EUID  EGID  ENS   STAT  CPU   AFFINITY   TIME        MEM     NAME
//	0     6     12    18    24    30    36         47 50 53 56 59      67
const (
	colPid      = 0
	colUid      = 6
	colGid      = 12
	colEns      = 18
	colStat     = 24
	colCore     = 30
	colAffinity = 36
	colTime     = 47
	colMem      = 59
	colName     = 67
)

// ParseRow parses one fixed-column row. Only an unusable pid or a row
// shorter than the layout is a failure; every other malformed field degrades
// to its zero value or Unknown.
func ParseRow(line string) (Record, error) {
	if len(line) < colName {
		return Record{}, fmt.Errorf("%w: %d bytes", ErrShortRow, len(line))
	}

	pid, err := strconv.Atoi(strings.TrimSpace(line[colPid:colUid]))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrBadPid, line[colPid:colUid])
	}

	rec := Record{Pid: Pid(pid), Affinity: -1}

	if v, err := strconv.ParseUint(strings.TrimSpace(line[colUid:colGid]), 10, 32); err == nil {
		rec.UserID = uint32(v)
	}
	if v, err := strconv.ParseUint(strings.TrimSpace(line[colGid:colEns]), 10, 32); err == nil {
		rec.GroupID = uint32(v)
	}

	// First status character carries the task kind, the second the state.
	stat := strings.TrimSpace(line[colStat:colCore])
	if len(stat) > 0 {
		if stat[0] == 'U' {
			rec.ThreadKind = ThreadKindUserland
		} else {
			rec.ThreadKind = ThreadKindKernel
		}
	}
	if len(stat) > 1 {
		rec.StatusCode = stat[1]
		rec.Status = StatusFromCode(stat[1])
	}

	// The core column is rendered as "#N"; skip the marker byte.
	if v, err := strconv.Atoi(strings.TrimSpace(line[colCore+1 : colAffinity])); err == nil {
		rec.Affinity = v
	}

	rec.Time = parseClock(line[colTime:colMem])
	rec.Memory = parseMem(line[colMem:colName])
	rec.Name = strings.TrimSpace(line[colName:])
	return rec, nil
}

// parseClock converts an `HH:MM:SS.CC` field into milliseconds. Malformed
// components contribute zero.
func parseClock(field string) uint64 {
	if len(field) < 11 {
		return 0
	}
	num := func(s string) uint64 {
		v, _ := strconv.ParseUint(s, 10, 64)
		return v
	}
	return num(field[0:2])*3600*1000 +
		num(field[3:5])*60*1000 +
		num(field[6:8])*1000 +
		num(field[9:11])*10
}

// parseMem converts a `value unit` field. Unknown suffixes keep the raw
// value unscaled and are only worth a debug line.
func parseMem(field string) types.Bytes {
	value, unit, _ := strings.Cut(strings.TrimSpace(field), " ")
	v, _ := strconv.ParseUint(value, 10, 64)
	b, ok := types.ParseUnit(v, unit)
	if !ok {
		slog.Debug("procs: unknown memory suffix", "suffix", unit)
	}
	return b
}

// ParseTable parses the full enumeration blob, skipping the header row and
// any row that cannot yield a pid. Parsing never aborts the pass.
func ParseTable(table string) []Record {
	var recs []Record
	for i, line := range strings.Split(table, "\n") {
		if i == 0 || line == "" {
			continue
		}
		rec, err := ParseRow(line)
		if err != nil {
			slog.Debug("procs: skipping row", "err", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

// Apply reconciles a fresh enumeration against the entity map: records
// passing the selector are upserted, identity/ownership/time/memory fields
// refreshed, and the touch flag set. It returns the pids touched this pass,
// in enumeration order, so callers recompute rates only for entities that
// actually received a new sample. Entities absent from recs are left
// alone — marking them nonexistent is the caller's separate sweep, so a
// transient enumeration race never deletes a live process.
func Apply(procs map[Pid]*Process, recs []Record, uptime uint64, sel Selector) []Pid {
	var touched []Pid
	for _, rec := range recs {
		if !sel.match(rec.Pid) {
			continue
		}

		p, ok := procs[rec.Pid]
		if !ok {
			p = NewProcess(rec.Pid)
			procs[rec.Pid] = p
		}

		p.name = rec.Name
		p.memory = rec.Memory
		p.virtualMemory = rec.Memory
		uid, gid := rec.UserID, rec.GroupID
		p.userID = &uid
		p.effectiveUserID = &uid
		p.groupID = &gid
		p.effectiveGroupID = &gid
		p.status = rec.Status
		p.statusCode = rec.StatusCode
		p.threadKind = rec.ThreadKind
		p.runTime = rec.Time
		if sec := rec.Time / 1000; uptime > sec {
			p.startTime = uptime - sec
		}
		// The enumeration reports one accumulated figure; kernel time is
		// folded into it.
		p.SetTime(rec.Time, 0)
		p.updated = true
		p.exists = true

		touched = append(touched, rec.Pid)
	}
	return touched
}

// Refresh is the bulk ingestion entry point: parse the enumeration blob,
// then apply it. Returns the pids touched this cycle.
func Refresh(procs map[Pid]*Process, table string, uptime uint64, sel Selector) []Pid {
	return Apply(procs, ParseTable(table), uptime, sel)
}
