package cpu

import (
	"strconv"
	"strings"
)

type vendorInfo struct {
	vendor string
	brand  string
}

// parseCPUInfo reads the key:value hardware blob and maps every core index
// to its (vendor, model) pair. The blob describes the package once; the same
// identity is assigned to each of the announced cores. Unknown keys and
// malformed lines are ignored.
func parseCPUInfo(s string) map[int]vendorInfo {
	count := 1
	var vendor, model string
	for _, line := range strings.Split(s, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "CPUs":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
				count = n
			}
		case "Vendor":
			vendor = value
		case "Model":
			model = value
		}
	}

	cpus := make(map[int]vendorInfo, count)
	for id := 0; id < count; id++ {
		cpus[id] = vendorInfo{vendor: vendor, brand: model}
	}
	return cpus
}
