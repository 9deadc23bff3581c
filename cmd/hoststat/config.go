package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the sampling flags. Values from the file act as
// defaults: a flag set on the command line always wins.
type fileConfig struct {
	Root         string   `yaml:"root"`
	Interval     string   `yaml:"interval"`
	Samples      *int     `yaml:"samples"`
	Top          *int     `yaml:"top"`
	Frequency    *bool    `yaml:"frequency"`
	MaxOpenFiles *int64   `yaml:"max_open_files"`
	EMA          *float64 `yaml:"ema"`
	CSV          string   `yaml:"csv"`
	JSON         string   `yaml:"json"`
}

func applyConfig(cmd *cobra.Command, o *opts) error {
	if o.configPath == "" {
		return nil
	}
	b, err := os.ReadFile(o.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", o.configPath, err)
	}

	flags := cmd.Flags()
	if fc.Root != "" && !flags.Changed("root") {
		o.root = fc.Root
	}
	if fc.Interval != "" && !flags.Changed("interval") {
		d, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return fmt.Errorf("config interval %q: %w", fc.Interval, err)
		}
		o.interval = d
	}
	if fc.Samples != nil && !flags.Changed("samples") {
		o.samples = *fc.Samples
	}
	if fc.Top != nil && !flags.Changed("top") {
		o.top = *fc.Top
	}
	if fc.Frequency != nil && !flags.Changed("frequency") {
		o.frequency = *fc.Frequency
	}
	if fc.MaxOpenFiles != nil && !flags.Changed("max-open-files") {
		o.maxFiles = *fc.MaxOpenFiles
	}
	if fc.EMA != nil && !flags.Changed("ema") {
		o.ema = *fc.EMA
	}
	if fc.CSV != "" && !flags.Changed("csv") {
		o.csvPath = fc.CSV
	}
	if fc.JSON != "" && !flags.Changed("json") {
		o.jsonPath = fc.JSON
	}
	return nil
}
