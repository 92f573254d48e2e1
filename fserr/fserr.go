// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fserr defines the filter session's abstract error kinds (spec §7)
// as a small sentinel-error type compatible with errors.Is/errors.As, in
// the teacher's manner of re-exporting a closed vocabulary of semantic
// errors (see internal/lfq, which re-exports iox.ErrWouldBlock) rather than
// building a bespoke status-code system.
package fserr

import "fmt"

// Kind is one of the abstract error kinds from spec §7.
type Kind int

const (
	// OK is not actually returned as an error; present for completeness of
	// the Kind enumeration mirrored from the C source's GF_Err.
	OK Kind = iota
	EndOfStream
	NotReady
	BadParam
	NotSupported
	RequiresNewInstance
	FilterNotSupported
	ServiceError
	RemoteServiceError
	IOError
	OutOfMemory
	NotFound
	ProfileNotSupported
	URLError
)

var names = [...]string{
	OK:                  "ok",
	EndOfStream:         "end of stream",
	NotReady:            "not ready",
	BadParam:            "bad parameter",
	NotSupported:        "not supported",
	RequiresNewInstance: "requires new instance",
	FilterNotSupported:  "filter not supported",
	ServiceError:        "service error",
	RemoteServiceError:  "remote service error",
	IOError:             "i/o error",
	OutOfMemory:         "out of memory",
	NotFound:            "not found",
	ProfileNotSupported: "profile not supported",
	URLError:            "url error",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(names) {
		return "unknown error kind"
	}
	return names[k]
}

// Error wraps a Kind with filter/context detail. It implements error and
// supports errors.Is against a bare Kind value, so callers can write
// errors.Is(err, fserr.EndOfStream) regardless of whether the error carries
// extra context.
type Error struct {
	Kind    Kind
	Filter  string
	Detail  string
	wrapped error
}

func (e *Error) Error() string {
	switch {
	case e.Filter != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.Filter, e.Kind, e.Detail)
	case e.Filter != "":
		return fmt.Sprintf("%s: %s", e.Filter, e.Kind)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.wrapped }

// Is supports errors.Is(err, SomeKind) by comparing the wrapped Kind.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

// Is lets a bare Kind satisfy errors.Is comparisons directly, e.g.
// errors.Is(err, fserr.EndOfStream).
func (k Kind) Is(target error) bool {
	if other, ok := target.(Kind); ok {
		return k == other
	}
	if e, ok := target.(*Error); ok {
		return e.Kind == k
	}
	return false
}

// Error lets a bare Kind be used directly as an error value.
func (k Kind) Error() string { return k.String() }

// New builds an *Error for the given kind, filter name, and free-form
// detail. Any of filter/detail may be empty.
func New(kind Kind, filter, detail string) *Error {
	return &Error{Kind: kind, Filter: filter, Detail: detail}
}

// Wrap attaches kind/filter/detail context to an underlying error while
// preserving it for errors.Unwrap.
func Wrap(kind Kind, filter string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{Kind: kind, Filter: filter, Detail: detail, wrapped: err}
}

// Severity orders kinds for "worst observed error" aggregation: Run()
// reports the highest-severity error seen across all filters (spec §7,
// "run returns the highest-severity error observed"). OK/EndOfStream/
// NotReady are the least severe (recovered or clean completion); fatal
// kinds are most severe.
func Severity(k Kind) int {
	switch k {
	case OK:
		return 0
	case NotReady:
		return 1
	case EndOfStream:
		return 2
	case NotFound:
		return 3
	case RequiresNewInstance, FilterNotSupported, ProfileNotSupported:
		return 4
	case NotSupported, BadParam:
		return 5
	case URLError, IOError:
		return 6
	case OutOfMemory, ServiceError, RemoteServiceError:
		return 7
	default:
		return 4
	}
}

// Worse reports whether candidate should replace current as the
// highest-severity observed error.
func Worse(candidate, current Kind) bool {
	return Severity(candidate) > Severity(current)
}

// IsFatal reports whether a process()/configure_pid() error terminates the
// filter/edge per §7's propagation policy (anything other than
// OK/NotReady/EndOfStream from process, anything other than the
// specifically-handled kinds from configure_pid).
func IsFatal(k Kind) bool {
	switch k {
	case OK, NotReady, EndOfStream:
		return false
	case RequiresNewInstance, FilterNotSupported, ProfileNotSupported:
		return false
	default:
		return true
	}
}
