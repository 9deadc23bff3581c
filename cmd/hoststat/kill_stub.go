//go:build !linux

package main

import "github.com/spf13/cobra"

// Signal delivery needs the host's process-control primitives; only the
// Linux build carries the kill subcommand.
func addKillCommand(*cobra.Command, *opts) {}
