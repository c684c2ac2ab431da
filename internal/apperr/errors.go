// Package apperr defines the error taxonomy shared by the scrape and build stages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// TransportError reports a fetch that failed after all retries.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a post page that did not yield a well-formed post.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// ConfigError reports invalid configuration. It is always fatal.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EmptyCorpusError reports an assembly scope without posts.
type EmptyCorpusError struct {
	Scope string
}

func (e *EmptyCorpusError) Error() string {
	return fmt.Sprintf("no posts to assemble for scope %q", e.Scope)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsParse reports whether err is or wraps a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsEmptyCorpus reports whether err is or wraps an EmptyCorpusError.
func IsEmptyCorpus(err error) bool {
	var ee *EmptyCorpusError
	return errors.As(err, &ee)
}
