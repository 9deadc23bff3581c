package procs

import (
	"os"
	"sync/atomic"
)

// FileBudget caps how many auxiliary file handles the library keeps open at
// once. One budget is shared process-wide and passed by reference into
// whatever samples with it; it is not a hidden singleton, so its lifetime
// and sharing scope stay explicit and testable.
type FileBudget struct {
	remaining atomic.Int64
}

// NewFileBudget returns a budget with limit free slots.
func NewFileBudget(limit int64) *FileBudget {
	b := &FileBudget{}
	b.remaining.Store(limit)
	return b
}

// Acquire claims a slot for f. When the budget is spent it returns
// ErrBudgetExhausted without blocking; the caller proceeds without the
// optional handle.
func (b *FileBudget) Acquire(f *os.File) (*GuardedFile, error) {
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return nil, ErrBudgetExhausted
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return &GuardedFile{File: f, budget: b}, nil
		}
	}
}

// Remaining reports the free slots left.
func (b *FileBudget) Remaining() int64 { return b.remaining.Load() }

// GuardedFile couples an open handle with its budget slot. Close returns the
// slot exactly once no matter how many times it runs or which exit path
// triggered it.
type GuardedFile struct {
	*os.File
	budget   *FileBudget
	released atomic.Bool
}

func (g *GuardedFile) Close() error {
	if g.released.CompareAndSwap(false, true) {
		g.budget.remaining.Add(1)
	}
	if g.File == nil {
		return nil
	}
	return g.File.Close()
}
