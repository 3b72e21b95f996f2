package economy

import (
	"errors"
	"fmt"
)

// InputError reports a settlement record that cannot be modeled.
// It is recoverable: the processor skips the settlement and continues.
type InputError struct {
	ID     int
	Name   string
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("settlement %d (%q): %s %s", e.ID, e.Name, e.Field, e.Reason)
}

// IsInputError reports whether err carries an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
