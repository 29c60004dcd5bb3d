package pagequery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRange matches every *InvalidRangeError.
	ErrInvalidRange = errors.New("invalid range")
	// ErrProjectionMismatch matches every *ProjectionMismatchError.
	ErrProjectionMismatch = errors.New("projection mismatch")
	// ErrDataSource matches every *DataSourceError.
	ErrDataSource = errors.New("data source failure")
	// ErrInvalidQuery is returned for malformed query descriptions: forbidden
	// symbols in identifiers, unknown operators or directions.
	ErrInvalidQuery = errors.New("invalid query")
)

// InvalidRangeError reports a negative offset, a non-positive limit or a
// page number whose offset overflows.
type InvalidRangeError struct {
	Offset int
	Limit  int
	// Page is set when the offset of a page number cannot be represented.
	Page int
}

func (e *InvalidRangeError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("invalid range: page=%d size=%d overflows offset", e.Page, e.Limit)
	}

	return fmt.Sprintf("invalid range: offset=%d limit=%d", e.Offset, e.Limit)
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// ProjectionMismatchError reports a column that cannot be produced by the
// tables a query reads from.
type ProjectionMismatchError struct {
	Column    Column
	Available []string
}

func (e *ProjectionMismatchError) Error() string {
	if e.Column == "" {
		return "projection mismatch: empty projection"
	}

	return fmt.Sprintf(
		"projection mismatch: column '%s' refers to unknown source '%s' (available: %s)",
		e.Column, e.Column.Source(), strings.Join(e.Available, ", "),
	)
}

func (e *ProjectionMismatchError) Is(target error) bool {
	return target == ErrProjectionMismatch
}

// DataSourceError wraps any failure surfaced by a DataSource: connectivity,
// timeouts, constraint violations. Op names the failed call.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

func (e *DataSourceError) Is(target error) bool {
	return target == ErrDataSource
}

// wrapDataSourceError wraps err into a *DataSourceError unless it already is
// one, so errors reach the caller wrapped exactly once.
func wrapDataSourceError(op string, err error) error {
	if err == nil {
		return nil
	}

	var dsErr *DataSourceError
	if errors.As(err, &dsErr) {
		return err
	}

	return &DataSourceError{Op: op, Err: err}
}
