//go:build linux

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/ja7ad/hoststat/pkg/system/procs"
	"github.com/ja7ad/hoststat/pkg/telemetry"
)

// addKillCommand wires the identity-checked signal delivery. The process is
// re-enumerated and fingerprinted first, so a recycled pid is reported as
// not found instead of being signaled.
func addKillCommand(root *cobra.Command, o *opts) {
	var sigName string

	c := &cobra.Command{
		Use:   "kill PID",
		Short: "Signal a process after verifying it is still the same process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil || pid <= 0 {
				return fmt.Errorf("invalid PID %q", args[0])
			}
			sig := unix.SignalNum("SIG" + strings.TrimPrefix(strings.ToUpper(sigName), "SIG"))
			if sig == 0 {
				return fmt.Errorf("unknown signal %q", sigName)
			}

			sys := telemetry.New(telemetry.NewFileSource(o.root), nil)
			sys.RefreshProcesses(procs.Selector{procs.Pid(pid)})
			p := sys.Process(procs.Pid(pid))
			if p == nil {
				return fmt.Errorf("process %d not found", pid)
			}
			p.RefreshDetails(sys.FileBudget())
			if !p.KillWith(sig) {
				return fmt.Errorf("process %d not signaled", pid)
			}
			return nil
		},
		SilenceUsage: true,
	}
	c.Flags().StringVarP(&sigName, "signal", "s", "TERM", "signal to deliver (name, with or without SIG prefix)")

	root.AddCommand(c)
}
