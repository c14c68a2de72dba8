package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Try runs fn and returns a recovered panic as an error.
func Try(fn func()) error {
	var catcher panics.Catcher
	catcher.Try(fn)
	return catcher.Recovered().AsError()
}

// Safe wraps fn so that a panic is returned as an error instead of
// unwinding the caller's goroutine.
func Safe(fn func() error) func() error {
	return func() error {
		var err error
		if perr := Try(func() { err = fn() }); perr != nil {
			return perr
		}
		return err
	}
}

// SafeContext is Safe for functions that take a context.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}
