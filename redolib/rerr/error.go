// Package rerr defines the closed set of error kinds the core can raise
// (spec §7) and a wrapped error type carrying the file offset at which the
// failure was observed, so a caller can decide retry-vs-fatal without
// parsing error strings.
package rerr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/logminer/redocore/redolib/recordtype"
)

type Kind int

const (
	// Configuration - malformed options or unsupported value; fatal at startup.
	Configuration Kind = iota
	// NotReady - file not yet present or not yet complete.
	NotReady
	// Corrupt - header/checksum/field-table integrity failure.
	Corrupt
	// Malformed - vector walk exceeded record size, unknown opcode variant.
	Malformed
	// MemoryExhausted - arena at max capacity.
	MemoryExhausted
	// SchemaMiss - DML references an OBJ with no current Table descriptor.
	SchemaMiss
	// LobResolutionFailure - a LOB page could not be joined at emit time.
	LobResolutionFailure
	// NetworkError - transient, belongs to the Emitter/sink boundary.
	NetworkError
	// StateStoreError - transient, belongs to the Checkpointer boundary.
	StateStoreError
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "Configuration"
	case NotReady:
		return "NotReady"
	case Corrupt:
		return "Corrupt"
	case Malformed:
		return "Malformed"
	case MemoryExhausted:
		return "MemoryExhausted"
	case SchemaMiss:
		return "SchemaMiss"
	case LobResolutionFailure:
		return "LobResolutionFailure"
	case NetworkError:
		return "NetworkError"
	case StateStoreError:
		return "StateStoreError"
	default:
		return "Unknown"
	}
}

// Error is the core's uniform error type: a Kind for policy dispatch, the
// file offset the failure was observed at (zero if not applicable), and the
// wrapped cause.
type Error struct {
	Kind       Kind
	FileOffset recordtype.FileOffset
	Reason     string
	cause      error
}

func (e *Error) Error() string {
	if e.FileOffset != 0 {
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.FileOffset, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error, capturing a stack trace via pkg/errors when there is
// no underlying cause to wrap (fresh fatal conditions such as Corrupt or
// Malformed benefit most from a trace pointing at the detection site).
func New(kind Kind, offset recordtype.FileOffset, reason string) *Error {
	return &Error{Kind: kind, FileOffset: offset, Reason: reason, cause: errors.New(reason)}
}

// Wrap attaches a Kind and file offset to an existing error, preserving it
// as the Unwrap() cause.
func Wrap(kind Kind, offset recordtype.FileOffset, cause error, reason string) *Error {
	return &Error{Kind: kind, FileOffset: offset, Reason: reason, cause: errors.Wrap(cause, reason)}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is a Error of the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
