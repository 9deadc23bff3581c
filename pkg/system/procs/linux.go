//go:build linux

package procs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// statStartTimeIdx is the index of starttime among the fields following the
// parenthesized command, per proc(5).
const statStartTimeIdx = 19

// statParentIdx is the index of ppid among the fields following the command.
const statParentIdx = 1

func (p *Process) procPath() string {
	return filepath.Join("/proc", strconv.Itoa(int(p.pid)))
}

// RefreshDetails fills the best-effort fields the bulk enumeration does not
// carry: command vector, executable/cwd/root links, parent pid, I/O byte
// counters and the start-time fingerprint used for identity checks. Every
// read degrades independently; nothing here fails the pass.
//
// The stat handle is kept open across cycles when the budget allows it, so
// repeated refreshes of a long-lived process cost one open instead of one
// per cycle. On a spent budget the handle is simply re-opened next time.
func (p *Process) RefreshDetails(budget *FileBudget) {
	base := p.procPath()

	if b, err := os.ReadFile(filepath.Join(base, "cmdline")); err == nil {
		if cmd := splitNull(b); len(cmd) > 0 {
			p.cmd = cmd
			if p.name == "" {
				p.name = filepath.Base(cmd[0])
			}
		}
	}
	if target, err := os.Readlink(filepath.Join(base, "exe")); err == nil {
		p.exe = target
	}
	if target, err := os.Readlink(filepath.Join(base, "cwd")); err == nil {
		p.cwd = target
	}
	if target, err := os.Readlink(filepath.Join(base, "root")); err == nil {
		p.root = target
	}

	if read, written, ok := readProcIO(base); ok {
		p.SetIOCounters(read, written)
	}

	if line, ok := p.readStat(budget); ok {
		if _, _, rest, ok := splitStat(line); ok {
			if len(rest) > statStartTimeIdx {
				p.startTimeRaw, _ = strconv.ParseUint(rest[statStartTimeIdx], 10, 64)
			}
			if len(rest) > statParentIdx {
				if ppid, err := strconv.Atoi(rest[statParentIdx]); err == nil {
					p.parent = Pid(ppid)
				}
			}
		}
	}
}

// KillWith verifies the entity still maps to the same OS process, then
// delivers sig. A recycled pid or an unreadable stat line reports false,
// same as "not found"; it never escalates to an error.
func (p *Process) KillWith(sig unix.Signal) bool {
	if !p.sameProcess() {
		return false
	}
	return unix.Kill(int(p.pid), sig) == nil
}

// sameProcess re-reads the stat line and compares the start-time
// fingerprint recorded by RefreshDetails.
func (p *Process) sameProcess() bool {
	if p.startTimeRaw == 0 {
		return false
	}
	line, ok := p.readStat(nil)
	if !ok {
		return false
	}
	_, _, rest, ok := splitStat(line)
	if !ok || len(rest) <= statStartTimeIdx {
		return false
	}
	now, err := strconv.ParseUint(rest[statStartTimeIdx], 10, 64)
	return err == nil && now == p.startTimeRaw
}

// readStat returns the current stat line, preferring the cached guarded
// handle. With a budget it tries to cache the handle for later cycles;
// exhaustion falls back to a one-shot read.
func (p *Process) readStat(budget *FileBudget) (string, bool) {
	if p.statFile != nil {
		buf := make([]byte, 1024)
		n, err := p.statFile.ReadAt(buf, 0)
		if n > 0 {
			return string(buf[:n]), true
		}
		if err != nil {
			// Handle went stale with the process; drop it and its slot.
			_ = p.statFile.Close()
			p.statFile = nil
		}
	}

	path := filepath.Join(p.procPath(), "stat")
	if budget != nil {
		if f, err := os.Open(path); err == nil {
			g, err := budget.Acquire(f)
			if err != nil {
				// Budget spent: read once and let the handle go.
				defer f.Close()
				buf := make([]byte, 1024)
				n, _ := f.ReadAt(buf, 0)
				return string(buf[:n]), n > 0
			}
			p.statFile = g
			buf := make([]byte, 1024)
			n, _ := g.ReadAt(buf, 0)
			return string(buf[:n]), n > 0
		}
		return "", false
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// ReleaseHandles closes the cached stat handle, returning its budget slot.
func (p *Process) ReleaseHandles() {
	if p.statFile != nil {
		_ = p.statFile.Close()
		p.statFile = nil
	}
}

// readProcIO parses the read_bytes/write_bytes counters of a proc io file.
func readProcIO(base string) (readBytes, writeBytes uint64, ok bool) {
	b, err := os.ReadFile(filepath.Join(base, "io"))
	if err != nil {
		return 0, 0, false
	}
	for _, line := range strings.Split(string(b), "\n") {
		if v, found := strings.CutPrefix(line, "read_bytes:"); found {
			readBytes, _ = strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		} else if v, found := strings.CutPrefix(line, "write_bytes:"); found {
			writeBytes, _ = strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		}
	}
	return readBytes, writeBytes, true
}
