package procs

import "strings"

// splitStat splits a per-process stat line. The second field is the command
// name wrapped in parentheses, and both whitespace and parentheses are legal
// inside it, so the line cannot be split on spaces alone: the pid ends at
// the first space and the command ends at the last ')' in the line. The
// remaining fields are whitespace-delimited.
func splitStat(line string) (pid, comm string, rest []string, ok bool) {
	pid, tail, found := strings.Cut(line, " ")
	if !found {
		return "", "", nil, false
	}
	end := strings.LastIndexByte(tail, ')')
	if end < 0 {
		return "", "", nil, false
	}
	comm = strings.TrimPrefix(tail[:end], "(")
	rest = strings.Fields(tail[end+1:])
	return pid, comm, rest, true
}

// splitNull splits NUL-delimited data such as a command vector, dropping
// empty runs.
func splitNull(b []byte) []string {
	var out []string
	for _, part := range strings.Split(string(b), "\x00") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
