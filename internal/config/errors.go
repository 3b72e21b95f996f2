package config

import (
	"errors"
	"fmt"
)

// Table names used in error reports.
const (
	TableCitizens = "citizens"
	TableTiers    = "tiers"
	TableEconomy  = "economy"
)

// Error reports a missing or invalid configuration value. It is fatal for a run.
type Error struct {
	Table  string
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "config " + e.Table
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a configuration error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
