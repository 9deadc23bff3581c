package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ja7ad/hoststat/pkg/system/procs"
	"github.com/ja7ad/hoststat/pkg/system/util"
	"github.com/ja7ad/hoststat/pkg/telemetry"
)

type opts struct {
	configPath string

	// sampling
	root      string
	interval  time.Duration
	samples   int
	top       int
	frequency bool
	maxFiles  int64
	ema       float64

	// outputs
	csvPath  string
	jsonPath string
	pretty   bool
	verbose  bool
}

type row struct {
	At        time.Time `json:"time"`
	Global    float64   `json:"cpu_global_pct"`
	PerCore   []float64 `json:"cpu_per_core_pct"`
	Processes int       `json:"processes_updated"`
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "hoststat [PID]...",
		Short: "Host CPU and process telemetry sampler",
		Long: `The hoststat tool samples raw kernel tick counters and the process
enumeration table, and turns them into point-in-time rates: per-core and
machine-wide CPU utilization, per-process CPU percentage, memory, status
and I/O deltas.

With PID arguments it restricts the process pass to those pids.

Examples:
  hoststat -i 1s -s 20
  hoststat --csv out.csv --json out.json 1 4 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd, &o); err != nil {
				return err
			}
			return run(cmd.Context(), o, args)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVarP(&o.configPath, "config", "c", "", "YAML config file with defaults for the flags below")
	root.Flags().StringVar(&o.root, "root", "/scheme", "scheme root holding sys/stat, sys/cpu, sys/context, sys/uptime")
	root.Flags().DurationVarP(&o.interval, "interval", "i", time.Second, "sampling interval (e.g. 1s, 500ms)")
	root.Flags().IntVarP(&o.samples, "samples", "s", 5, "number of samples to collect (0 = run until Ctrl-C)")
	root.Flags().IntVar(&o.top, "top", 10, "number of processes to display, sorted by CPU")
	root.Flags().BoolVar(&o.frequency, "frequency", false, "also refresh per-core frequencies (best effort)")
	root.Flags().Int64Var(&o.maxFiles, "max-open-files", 0, "cap on cached per-process handles (0 = default)")
	root.Flags().Float64Var(&o.ema, "ema", 0.5, "EMA alpha for global CPU smoothing [0..1] (0 = raw readings)")
	root.Flags().StringVar(&o.csvPath, "csv", "", "write per-tick rows to CSV file")
	root.Flags().StringVar(&o.jsonPath, "json", "", "write per-tick rows to JSON file")
	root.Flags().BoolVar(&o.pretty, "pretty", term.IsTerminal(int(os.Stdout.Fd())), "format output as a table instead of CSV-like lines")
	root.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "log parse diagnostics at debug level")

	addKillCommand(root, &o)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts, args []string) error {
	if o.interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if o.ema < 0 || o.ema > 1 {
		return fmt.Errorf("ema must be in [0,1]")
	}
	sel, err := parseSelector(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sys := telemetry.New(telemetry.NewFileSource(o.root), &telemetry.Config{
		MaxOpenFiles: o.maxFiles,
	})

	var tw *tabwriter.Writer
	if o.pretty {
		tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	} else {
		fmt.Println("# time, cpu_global_pct, processes_updated")
	}

	var (
		csvF *os.File
		csvW *csv.Writer
	)
	if o.csvPath != "" {
		if err := os.MkdirAll(filepath.Dir(o.csvPath), 0o755); err == nil {
			if f, er := os.Create(o.csvPath); er == nil {
				csvF = f
				csvW = csv.NewWriter(f)
				_ = csvW.Write([]string{"time", "cpu_global_pct", "processes_updated"})
				csvW.Flush()
			}
		}
	}

	var rows []row

	// One coarse sample per tick is noisy; smooth the global reading the
	// same way the process accountant steadies its utilization figures.
	var smooth *util.EMA
	if o.ema > 0 {
		smooth = util.NewEMA(o.ema)
	}

	// Warm-up pass: the first sample of a differential pipeline carries no
	// usable rate, so take it before the display loop starts.
	sys.RefreshCPU(o.frequency)
	sys.RefreshProcesses(sel)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	sampleN := 0
LOOP:
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted")
			break LOOP

		case <-ticker.C:
			sys.RefreshCPU(o.frequency)
			n := sys.RefreshProcesses(sel)
			for _, pid := range sys.SweepStale() {
				sys.Remove(pid)
			}
			sampleN++

			global := sys.GlobalCPUUsage()
			if smooth != nil {
				global = smooth.Next(global)
			}

			now := time.Now()
			if o.pretty {
				printSample(tw, sys, now, global, n, o.top)
			} else {
				fmt.Printf("%s, %.2f, %d\n", now.Format(time.RFC3339), global, n)
			}

			r := row{At: now, Global: global, Processes: n}
			for _, c := range sys.Cpus() {
				r.PerCore = append(r.PerCore, c.Usage())
			}
			rows = append(rows, r)

			if csvW != nil {
				_ = csvW.Write([]string{
					now.Format(time.RFC3339),
					strconv.FormatFloat(r.Global, 'f', 2, 64),
					strconv.Itoa(n),
				})
				csvW.Flush()
			}

			if o.samples > 0 && sampleN >= o.samples {
				break LOOP
			}
		}
	}

	if csvW != nil {
		csvW.Flush()
	}
	if csvF != nil {
		_ = csvF.Close()
	}
	if o.jsonPath != "" {
		if err := os.MkdirAll(filepath.Dir(o.jsonPath), 0o755); err == nil {
			if b, err := json.MarshalIndent(rows, "", "  "); err == nil {
				_ = os.WriteFile(o.jsonPath, b, 0o644)
			}
		}
	}
	return nil
}

func parseSelector(args []string) (procs.Selector, error) {
	if len(args) == 0 {
		return nil, nil
	}
	sel := make(procs.Selector, 0, len(args))
	for _, a := range args {
		pid, err := strconv.Atoi(a)
		if err != nil || pid < 0 {
			return nil, fmt.Errorf("invalid PID %q", a)
		}
		sel = append(sel, procs.Pid(pid))
	}
	return sel, nil
}

func printSample(tw *tabwriter.Writer, sys *telemetry.System, ts time.Time, global float64, updated, top int) {
	fmt.Printf("\n%s  global %.2f%%  (%d processes updated)\n",
		ts.Format("2006-01-02 15:04:05"), global, updated)

	fmt.Fprintln(tw, "CORE\tUSAGE\tFREQ (MHz)\tBRAND")
	for _, c := range sys.Cpus() {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%d\t%s\n", c.Name(), c.Usage(), c.Frequency(), c.Brand())
	}
	tw.Flush()

	procList := make([]*procs.Process, 0, len(sys.Processes()))
	for _, p := range sys.Processes() {
		procList = append(procList, p)
	}
	slices.SortFunc(procList, func(a, b *procs.Process) int {
		switch {
		case a.CPUUsage() > b.CPUUsage():
			return -1
		case a.CPUUsage() < b.CPUUsage():
			return 1
		default:
			return int(a.Pid()) - int(b.Pid())
		}
	})
	if top > 0 && len(procList) > top {
		procList = procList[:top]
	}
	enrichProcesses(sys, procList)

	fmt.Fprintln(tw, "PID\tCPU\tMEM\tDISK R\tDISK W\tSTATUS\tKIND\tNAME")
	for _, p := range procList {
		d := p.DiskUsage()
		fmt.Fprintf(tw, "%d\t%.2f%%\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Pid(), p.CPUUsage(), p.Memory().Humanized(),
			d.ReadBytes.Humanized(), d.WrittenBytes.Humanized(),
			p.Status(), p.ThreadKind(), p.Name())
	}
	tw.Flush()
}
