// Package sink defines the typed error surface shared by the record sink
// implementations under sink/sheets and sink/database.
package sink

import "fmt"

// Drivers selectable via configuration.
const (
	DriverSheets   = "sheets"
	DriverPostgres = "postgres"
)

// Error wraps a sink failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

// E builds a sink error for the given operation.
func E(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("sink: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
