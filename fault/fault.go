// Package fault defines the error taxonomy shared by every fallible
// operation in the bundle/file pipeline.
//
// Classified failures (OS errors, cycles, conflicting or duplicate hashes,
// malformed files) surfaced by this module's exported functions are, or
// wrap, a *Fault; precondition and argument errors (a non-empty bundle, a
// mismatched hash length) are plain errors. Callers that need to
// distinguish failure classes should use Is or errors.As rather than
// string-matching Error().
package fault

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies a Fault. Kinds are disjoint; a Fault carries exactly one.
type Kind int32

const (
	// KindErrno wraps an OS-level failure (I/O, allocation, mmap).
	KindErrno Kind = iota + 1
	// KindGraphCycle means the ingested graph contains a cycle.
	KindGraphCycle
	// KindNodeConflict means the same hash was seen with disagreeing
	// target sets.
	KindNodeConflict
	// KindNodeDuplicate means the same hash was seen twice; reserved for
	// strict-mode ingest.
	KindNodeDuplicate
	// KindEdgeDuplicate means the same (src, dst) edge was declared twice;
	// reserved for strict-mode ingest.
	KindEdgeDuplicate
	// KindInvalidFormat means a file's header or size failed validation.
	KindInvalidFormat
)

func (k Kind) String() string {
	switch k {
	case KindErrno:
		return "errno"
	case KindGraphCycle:
		return "graph_cycle"
	case KindNodeConflict:
		return "node_conflict"
	case KindNodeDuplicate:
		return "node_duplicate"
	case KindEdgeDuplicate:
		return "edge_duplicate"
	case KindInvalidFormat:
		return "invalid_format"
	default:
		return fmt.Sprintf("fault.Kind(%d)", int32(k))
	}
}

// Fault is a classified failure. It implements error and supports
// errors.Is/errors.As via Unwrap.
type Fault struct {
	Kind Kind
	// Code carries the OS error number when Kind == KindErrno, 0 otherwise.
	Code int32
	// Err is the wrapped cause, if any.
	Err error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s", f.Kind, f.Err)
	}
	return f.Kind.String()
}

func (f *Fault) Unwrap() error { return f.Err }

// New creates a Fault of the given kind wrapping cause. cause may be nil.
func New(kind Kind, cause error) *Fault {
	return &Fault{Kind: kind, Err: cause}
}

// Errno wraps an OS error as a KindErrno Fault, preserving the numeric
// code when cause is or wraps a syscall.Errno.
func Errno(cause error) *Fault {
	f := &Fault{Kind: KindErrno, Err: cause}
	var errno syscall.Errno
	var coder interface{ ErrnoCode() int32 }
	if errors.As(cause, &errno) {
		f.Code = int32(errno)
	} else if errors.As(cause, &coder) {
		f.Code = coder.ErrnoCode()
	}
	return f
}

// Is reports whether err is a *Fault of the given kind.
func Is(err error, k Kind) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	return f.Kind == k
}

// Errorf builds a KindErrno-agnostic Fault by wrapping a formatted error,
// for call sites that want a Fault-shaped failure without an OS cause.
func Errorf(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Err: fmt.Errorf(format, args...)}
}
