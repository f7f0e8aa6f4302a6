package webdav

import (
	"fmt"
)

// TransportError means the request never produced an HTTP response
// (connection refused, DNS failure, timeout).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError means the server answered with a status other than 207 or 2xx.
type ProtocolError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// ParseError means a multistatus body could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse multistatus for %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
