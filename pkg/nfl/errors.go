package nfl

import (
	"errors"
	"fmt"
)

// ErrEmptyInput signals a recoverable per-week condition: no rows to train or
// predict on. The backtest loop logs it and moves to the next week.
var ErrEmptyInput = errors.New("no input rows")

// ConfigError is fatal and must abort the run before any write happens
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// DataIntegrityError reports a table whose contents violate a structural
// invariant, with enough context to find the offending key or column
type DataIntegrityError struct {
	Table  string
	Key    string
	Column string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	msg := fmt.Sprintf("data integrity error in %s", e.Table)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %s)", e.Key)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %s)", e.Column)
	}
	return msg + ": " + e.Reason
}
