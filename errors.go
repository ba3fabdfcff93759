package graphcheck

import (
	"errors"
	"fmt"

	"github.com/hupe1980/graphcheck/internal/checker"
)

var (
	// ErrCancelled is returned when a run was stopped before checking every range.
	ErrCancelled = errors.New("consistency check cancelled")

	// ErrClosed is returned by a closed Checker.
	ErrClosed = errors.New("checker closed")

	// ErrInvalidConfig is returned for options that cannot describe a run.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RangeError is a fatal failure of one pass over one node range, typically a
// store read error.
//
// The original underlying error can be accessed via errors.Unwrap.
type RangeError struct {
	Pass string
	// From and To bound the node range, To exclusive.
	From  int64
	To    int64
	cause error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s pass on nodes [%d,%d): %v", e.Pass, e.From, e.To, e.cause)
}

func (e *RangeError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pe *checker.PassError
	if errors.As(err, &pe) {
		return &RangeError{Pass: pe.Pass, From: pe.Range.From, To: pe.Range.To, cause: pe.Err}
	}
	if errors.Is(err, checker.ErrNoStores) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return err
}
