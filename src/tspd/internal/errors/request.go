package errors

import (
	"fmt"
)

// ParseError indicates that a request payload could not be decoded.
type ParseError struct {
	Method string
	Err    error
}

// Error is an implementation of the error interface.
func (p *ParseError) Error() string {
	return fmt.Sprintf("invalid request format for %q: %v", p.Method, p.Err)
}

// Unwrap returns the decoding error.
func (p *ParseError) Unwrap() error {
	return p.Err
}

// InvalidRequestIDError indicates that a request id is neither an integer nor a string.
type InvalidRequestIDError struct {
	Raw string
}

// Error is an implementation of the error interface.
func (i *InvalidRequestIDError) Error() string {
	return fmt.Sprintf("invalid request id %s", i.Raw)
}

// UnimplementedMethodError indicates a method that is recognized but has no handler.
type UnimplementedMethodError struct {
	Method string
}

// Error is an implementation of the error interface.
func (u *UnimplementedMethodError) Error() string {
	return fmt.Sprintf("unimplemented method %q", u.Method)
}
