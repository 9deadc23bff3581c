//go:build linux

package main

import (
	"github.com/ja7ad/hoststat/pkg/system/procs"
	"github.com/ja7ad/hoststat/pkg/telemetry"
)

// enrichProcesses fills the per-process detail fields the bulk enumeration
// does not carry (cmdline, exe, I/O counters), so the display can show disk
// deltas. Handles are cached against the system's shared budget.
func enrichProcesses(sys *telemetry.System, list []*procs.Process) {
	for _, p := range list {
		p.RefreshDetails(sys.FileBudget())
	}
}
