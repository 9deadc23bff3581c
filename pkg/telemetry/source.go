package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileSource reads the raw blobs from pseudo-files under a scheme root, the
// layout this library was written against: sys/stat for tick counters,
// sys/cpu for the hardware blob, sys/context for the process table and
// sys/uptime for boot time. Individual paths can be overridden to point at
// fixtures or another layout.
type FileSource struct {
	StatPath   string
	InfoPath   string
	ProcsPath  string
	UptimePath string
}

// NewFileSource returns a source rooted at root (typically "/scheme").
func NewFileSource(root string) *FileSource {
	return &FileSource{
		StatPath:   filepath.Join(root, "sys", "stat"),
		InfoPath:   filepath.Join(root, "sys", "cpu"),
		ProcsPath:  filepath.Join(root, "sys", "context"),
		UptimePath: filepath.Join(root, "sys", "uptime"),
	}
}

// Stat returns the tick-counter table in the bucket order the tracker
// consumes. The scheme file reports five counters per row (user nice kernel
// idle irq), so the rows are rewritten with a zero iowait slot ahead of irq
// before handing them over.
func (f *FileSource) Stat() (string, error) {
	s, err := readString(f.StatPath)
	if err != nil {
		return "", err
	}
	return normalizeStat(s), nil
}

// normalizeStat remaps `name user nice kernel idle irq` counter rows into
// canonical order. Rows with any other shape pass through untouched.
func normalizeStat(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		f := strings.Fields(line)
		if len(f) == 6 && strings.HasPrefix(f[0], "cpu") {
			lines[i] = strings.Join([]string{f[0], f[1], f[2], f[3], f[4], "0", f[5]}, " ")
		}
	}
	return strings.Join(lines, "\n")
}

func (f *FileSource) CPUInfo() (string, error) {
	return readString(f.InfoPath)
}

func (f *FileSource) Processes() (string, error) {
	return readString(f.ProcsPath)
}

// Uptime parses the leading seconds figure of the uptime file.
func (f *FileSource) Uptime() (uint64, error) {
	s, err := readString(f.UptimePath)
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	sec, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, fmt.Errorf("telemetry: parse uptime %q: %w", first, err)
	}
	return uint64(sec), nil
}

// Frequency reads the cpufreq sysfs figure for core, reported in kHz, and
// converts it to MHz. Hosts without cpufreq simply report an error and the
// tracker keeps the previous value.
func (f *FileSource) Frequency(core int) (uint64, error) {
	path := fmt.Sprintf("/sys/devices/system/cpu/cpu%d/cpufreq/scaling_cur_freq", core)
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	khz, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telemetry: parse frequency %q: %w", strings.TrimSpace(s), err)
	}
	return khz / 1000, nil
}

func readString(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
