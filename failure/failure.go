// Package failure classifies what can go wrong during a scrape run.
package failure

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind categorizes a run failure
type Kind string

const (
	// Fatal kinds abort the run
	KindConfiguration  Kind = "CONFIGURATION"
	KindAuthentication Kind = "AUTHENTICATION"

	// Recoverable kinds degrade a single step
	KindNavigation Kind = "NAVIGATION"
	KindExtraction Kind = "EXTRACTION"
	KindEnrichment Kind = "ENRICHMENT"

	// Persistence errors are always surfaced to the caller
	KindPersistence Kind = "PERSISTENCE"
)

// Fatal reports whether a failure of this kind must stop the run.
func (k Kind) Fatal() bool {
	switch k {
	case KindConfiguration, KindAuthentication, KindPersistence:
		return true
	}
	return false
}

// Error is a classified failure. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable is the inverse of Kind.Fatal.
func (e *Error) Recoverable() bool {
	return !e.Kind.Fatal()
}

// New wraps err with a kind and an operation name. A nil err produces an
// error carrying only the operation.
func New(kind Kind, op string, err error) *Error {
	if err != nil {
		err = eris.Wrap(err, op)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a failure from a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: eris.Errorf(format, args...)}
}

func Configuration(op string, err error) *Error  { return New(KindConfiguration, op, err) }
func Authentication(op string, err error) *Error { return New(KindAuthentication, op, err) }
func Navigation(op string, err error) *Error     { return New(KindNavigation, op, err) }
func Extraction(op string, err error) *Error     { return New(KindExtraction, op, err) }
func Enrichment(op string, err error) *Error     { return New(KindEnrichment, op, err) }
func Persistence(op string, err error) *Error    { return New(KindPersistence, op, err) }

// KindOf returns the kind of the first classified failure in err's chain,
// or "" when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
