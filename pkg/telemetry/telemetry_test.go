package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ja7ad/hoststat/pkg/system/cpu"
	"github.com/ja7ad/hoststat/pkg/system/procs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	statA = `cpu  3655 0 10896 965406 37003
cpu0 344 0 626 29683 37003
cpu1 319 0 1632 28676 0
`
	statB = `cpu  3800 0 11000 965600 37100
cpu0 400 0 700 29800 37100
cpu1 340 0 1700 28700 0
`
	infoBlob = `CPUs: 2
Vendor: GenuineIntel
Model: Intel(R) Celeron(R) CPU J3455
`
	tableHeader = "PID   EUID  EGID  ENS   STAT  CPU   AFFINITY   TIME        MEM     NAME"
)

func row(pid, uid int, stat, clock, mem, name string) string {
	return fmt.Sprintf("%-6d%-6d%-6d%-6d%-6s%-6s%-11s%-12s%-8s%s",
		pid, uid, uid, 1, stat, "", "", clock, mem, name)
}

func procTable(rows ...string) string {
	return tableHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

type fakeSource struct {
	stat     string
	statErr  error
	info     string
	procs    string
	procsErr error
	uptime   uint64
}

func (f *fakeSource) Stat() (string, error)         { return f.stat, f.statErr }
func (f *fakeSource) CPUInfo() (string, error)      { return f.info, nil }
func (f *fakeSource) Frequency(int) (uint64, error) { return 0, errors.New("unsupported") }
func (f *fakeSource) Processes() (string, error)    { return f.procs, f.procsErr }
func (f *fakeSource) Uptime() (uint64, error)       { return f.uptime, nil }

func newTestSystem(src Source) (*System, *time.Time) {
	s := New(src, nil)
	clock := time.Unix(1000, 0)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestSystem_CPURefreshFlow(t *testing.T) {
	src := &fakeSource{stat: statA, info: infoBlob}
	s, _ := newTestSystem(src)

	s.RefreshCPU(false)
	require.Len(t, s.Cpus(), 2)
	assert.Equal(t, "GenuineIntel", s.Cpus()[0].VendorID())

	// The tracker rate-limits on real wall time; wait it out.
	time.Sleep(cpu.MinimumUpdateInterval + 20*time.Millisecond)
	src.stat = statB
	s.RefreshCPU(false)

	assert.Greater(t, s.GlobalCPUUsage(), 0.0)
	assert.LessOrEqual(t, s.GlobalCPUUsage(), 100.0)
	total, old := s.GlobalRawTimes()
	assert.Greater(t, total, old)
}

func TestSystem_ProcessRefreshAndUsage(t *testing.T) {
	src := &fakeSource{
		stat:   statA,
		info:   infoBlob,
		procs:  procTable(row(1, 0, "UR+", "00:00:01.00", "2 MB", "init")),
		uptime: 100,
	}
	s, clock := newTestSystem(src)
	s.RefreshCPU(false)

	n := s.RefreshProcesses(nil)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.UpdatedCount())

	p := s.Process(1)
	require.NotNil(t, p)
	assert.Equal(t, "init", p.Name())
	assert.Equal(t, 0.0, p.CPUUsage(), "first cycle is a warm-up")

	// One second of wall time, one extra second of accumulated CPU: the
	// process was fully busy on one core, half the two-core ceiling.
	*clock = clock.Add(time.Second)
	src.procs = procTable(row(1, 0, "UR+", "00:00:02.00", "2 MB", "init"))
	n = s.RefreshProcesses(nil)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 100.0, p.CPUUsage(), 1e-9)
}

func TestSystem_ProcessSelector(t *testing.T) {
	src := &fakeSource{
		procs: procTable(
			row(1, 0, "UR", "00:00:01.00", "1 KB", "init"),
			row(4, 0, "US", "00:00:01.00", "1 KB", "nulld"),
		),
	}
	s, _ := newTestSystem(src)

	n := s.RefreshProcesses(procs.Selector{4})
	assert.Equal(t, 1, n)
	assert.Nil(t, s.Process(1))
	assert.NotNil(t, s.Process(4))
}

func TestSystem_SelectorPassLeavesOthersUntouched(t *testing.T) {
	src := &fakeSource{
		procs: procTable(
			row(1, 0, "UR", "00:00:01.00", "1 KB", "init"),
			row(4, 0, "US", "00:00:01.00", "1 KB", "nulld"),
		),
		uptime: 100,
	}
	s, clock := newTestSystem(src)
	s.RefreshProcesses(nil)

	*clock = clock.Add(time.Second)
	src.procs = procTable(
		row(1, 0, "UR", "00:00:02.00", "1 KB", "init"),
		row(4, 0, "US", "00:00:01.00", "1 KB", "nulld"),
	)
	s.RefreshProcesses(nil)
	p := s.Process(1)
	require.NotNil(t, p)
	require.InDelta(t, 100.0, p.CPUUsage(), 1e-9)

	// Passes narrowed to another pid bring pid 1 no new sample, so its
	// reading must hold instead of decaying against fresh wall time.
	for i := 0; i < 10; i++ {
		*clock = clock.Add(5 * time.Second)
		s.RefreshProcesses(procs.Selector{4})
	}
	assert.InDelta(t, 100.0, p.CPUUsage(), 1e-9)
}

func TestSystem_SweepAndRemove(t *testing.T) {
	src := &fakeSource{
		procs: procTable(
			row(1, 0, "UR", "00:00:01.00", "1 KB", "init"),
			row(4, 0, "US", "00:00:01.00", "1 KB", "nulld"),
		),
	}
	s, clock := newTestSystem(src)
	s.RefreshProcesses(nil)
	require.Len(t, s.Processes(), 2)

	// Nothing stale right after a full refresh.
	assert.Empty(t, s.SweepStale())

	// Next enumeration lost pid 4: the sweep flags it, the map keeps it.
	*clock = clock.Add(time.Second)
	src.procs = procTable(row(1, 0, "UR", "00:00:01.50", "1 KB", "init"))
	s.RefreshProcesses(nil)

	stale := s.SweepStale()
	require.Equal(t, []procs.Pid{4}, stale)
	require.NotNil(t, s.Process(4))
	assert.False(t, s.Process(4).Exists())

	s.Remove(4)
	assert.Nil(t, s.Process(4))
}

func TestSystem_EnumerationFailureIsNoUpdate(t *testing.T) {
	src := &fakeSource{procsErr: errors.New("gone")}
	s, _ := newTestSystem(src)
	assert.Equal(t, 0, s.RefreshProcesses(nil))
	assert.Empty(t, s.Processes())
}

func TestFileSource_ReadsSchemeLayout(t *testing.T) {
	root := t.TempDir()
	sys := filepath.Join(root, "sys")
	require.NoError(t, os.MkdirAll(sys, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sys, "stat"), []byte(statA), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sys, "cpu"), []byte(infoBlob), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sys, "context"), []byte(procTable()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sys, "uptime"), []byte("123.45 seconds\n"), 0o644))

	src := NewFileSource(root)

	// Five-counter rows come back in canonical order with a zero iowait
	// slot spliced in ahead of irq.
	got, err := src.Stat()
	require.NoError(t, err)
	assert.Equal(t, "cpu 3655 0 10896 965406 0 37003\n"+
		"cpu0 344 0 626 29683 0 37003\n"+
		"cpu1 319 0 1632 28676 0 0\n", got)

	info, err := src.CPUInfo()
	require.NoError(t, err)
	assert.Equal(t, infoBlob, info)

	up, err := src.Uptime()
	require.NoError(t, err)
	assert.Equal(t, uint64(123), up)

	_, err = NewFileSource(filepath.Join(root, "missing")).Stat()
	assert.Error(t, err)
}

func TestNormalizeStat(t *testing.T) {
	in := "cpu  10 1 2 3 4\nname user nice kernel idle irq\ncpu0 1 2 3 4 5 6 7\nshort\n"
	lines := strings.Split(normalizeStat(in), "\n")
	assert.Equal(t, "cpu 10 1 2 3 0 4", lines[0], "irq shifts past an inserted iowait slot")
	assert.Equal(t, "name user nice kernel idle irq", lines[1], "legend row passes through")
	assert.Equal(t, "cpu0 1 2 3 4 5 6 7", lines[2], "canonical rows pass through")
	assert.Equal(t, "short", lines[3])
}

func TestFileSource_IRQOnlyWindowIsBusy(t *testing.T) {
	root := t.TempDir()
	sys := filepath.Join(root, "sys")
	require.NoError(t, os.MkdirAll(sys, 0o755))
	writeStat := func(s string) {
		require.NoError(t, os.WriteFile(filepath.Join(sys, "stat"), []byte(s), 0o644))
	}
	writeStat("cpu  3655 0 10896 965406 37003\ncpu0 3655 0 10896 965406 37003\nname user nice kernel idle irq\n")
	require.NoError(t, os.WriteFile(filepath.Join(sys, "cpu"), []byte(infoBlob), 0o644))

	tr := cpu.NewTracker()
	src := NewFileSource(root)
	tr.Refresh(src, false)
	require.Equal(t, 1, tr.Len())

	// Only the interrupt counter advances: the whole window was spent in
	// kernel interrupt context, which is busy time, not idle.
	time.Sleep(cpu.MinimumUpdateInterval + 20*time.Millisecond)
	writeStat("cpu  3655 0 10896 965406 38003\ncpu0 3655 0 10896 965406 38003\nname user nice kernel idle irq\n")
	tr.Refresh(src, false)

	assert.InDelta(t, 100.0, tr.GlobalUsage(), 1e-9)
	assert.InDelta(t, 100.0, tr.Cpus()[0].Usage(), 1e-9)
}

func TestSystem_DefaultBudgetIsShared(t *testing.T) {
	s := New(&fakeSource{}, &Config{MaxOpenFiles: 3})
	b := s.FileBudget()
	require.NotNil(t, b)
	assert.Equal(t, int64(3), b.Remaining())

	g, err := b.Acquire(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Remaining())
	require.NoError(t, g.Close())
	assert.Equal(t, int64(3), b.Remaining())
}
