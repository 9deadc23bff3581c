package procs

import "errors"

var (
	// ErrBudgetExhausted indicates that every allowed auxiliary file handle
	// is in use; callers proceed without the optional handle.
	ErrBudgetExhausted = errors.New("procs: file budget exhausted")

	// ErrShortRow indicates an enumeration row shorter than the fixed layout.
	ErrShortRow = errors.New("procs: enumeration row too short")

	// ErrBadPid indicates an enumeration row whose pid column is unparsable.
	ErrBadPid = errors.New("procs: unparsable pid")
)
