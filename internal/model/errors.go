// Package model provides data models for the health-monitoring agent.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means an adapter could not reach its data source.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedInput means a counter could not be parsed. It never leaves the normalizer.
	ErrMalformedInput = errors.New("malformed input")
	// ErrSerialization means the report could not be reduced to primitives.
	ErrSerialization = errors.New("serialization failure")
	// ErrSinkFailure means the report artifact could not be written.
	ErrSinkFailure = errors.New("sink failure")
	// ErrAdvisoryTransport means the advisory service could not be reached.
	ErrAdvisoryTransport = errors.New("advisory transport failure")
	// ErrAdvisoryParse means the advisory response could not be parsed.
	ErrAdvisoryParse = errors.New("advisory parse failure")
)

// SourceError is returned by adapters when a data source fails.
type SourceError struct {
	Domain Domain // affected domain
	Op     string // failing operation, e.g. "SHOW GLOBAL STATUS"
	Err    error  // underlying driver or OS error
}

// NewSourceError wraps err as a domain-scoped source failure.
func NewSourceError(domain Domain, op string, err error) *SourceError {
	return &SourceError{Domain: domain, Op: op, Err: err}
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source unavailable (%s): %v", e.Domain, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrSourceUnavailable) true for every SourceError.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}
