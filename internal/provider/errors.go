package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCodeFound means the ISIN search returned an empty result set.
	ErrNoCodeFound = errors.New("no security code found")

	// ErrEmptyExtraction means a scrape completed but yielded no usable
	// price, change or date.
	ErrEmptyExtraction = errors.New("no data extracted")

	// ErrNoHistory marks providers that only serve quote snapshots.
	ErrNoHistory = errors.New("history not supported")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s -> %d", e.Method, e.URL, e.Code)
}

// ParseError reports a missing field/selector or a malformed value in an
// otherwise successful upstream response.
type ParseError struct {
	Source Tag
	What   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse %s", e.Source, e.What)
}
