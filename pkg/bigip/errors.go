package bigip

import (
	"errors"
	"fmt"
)

// TransientError marks a management-endpoint operation that failed in a way
// worth retrying on a later pass: connection trouble, a malformed URL, or an
// unexpected HTTP status from the device. Validation and programming faults
// are plain errors and are not retried.
type TransientError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d from %s", e.Op, e.Status, e.URL)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should abort the current pass and be
// retried on the next one.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
