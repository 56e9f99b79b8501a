// Package errkind holds the error classes callers branch on. Sentinels are
// built with New so that errors.Is matches both the sentinel itself and each
// of its classes through any amount of wrapping, while distinct sentinels of
// one class stay distinct.
package errkind

import (
	crerr "github.com/cockroachdb/errors"
)

var (
	// IngestionFatal rejects a whole game; nothing of it is written.
	IngestionFatal = crerr.New("ingestion fatal")
	// Recoverable does not invalidate stored data; retrying may succeed.
	Recoverable = crerr.New("recoverable")
	// Query is returned to facade callers for bad input or missing data.
	Query = crerr.New("query error")
	// Config covers invalid caller-chosen parameters.
	Config = crerr.New("configuration error")
)

type classified struct {
	msg     string
	classes []error
}

func (e *classified) Error() string { return e.msg }

func (e *classified) Is(target error) bool {
	for _, c := range e.classes {
		if target == c {
			return true
		}
	}
	return false
}

// New creates a sentinel error that belongs to the given classes.
func New(msg string, classes ...error) error {
	return &classified{msg: msg, classes: classes}
}

// Classify marks an arbitrary error with a class. The reference must be one
// of the class errors above, not a sentinel made by New.
func Classify(err error, class error) error {
	if err == nil {
		return nil
	}
	return crerr.Mark(err, class)
}

func IsFatal(err error) bool       { return crerr.Is(err, IngestionFatal) }
func IsRecoverable(err error) bool { return crerr.Is(err, Recoverable) }
func IsQuery(err error) bool       { return crerr.Is(err, Query) }
func IsConfig(err error) bool      { return crerr.Is(err, Config) }
