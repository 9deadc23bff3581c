//go:build !linux

package main

import (
	"github.com/ja7ad/hoststat/pkg/system/procs"
	"github.com/ja7ad/hoststat/pkg/telemetry"
)

// Detail enrichment reads per-process pseudo-files; off Linux the disk
// columns simply stay at zero.
func enrichProcesses(*telemetry.System, []*procs.Process) {}
