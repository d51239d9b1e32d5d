// Package apperr defines the error currency of the HTTP API.
//
// Every failure that reaches a client travels as an *Error. Errors created
// through New are operational: the application detected an expected
// condition (bad input, missing resource, duplicate value) and the message is
// safe to show to the caller. Anything else that surfaces from a handler is
// treated as a programming/unknown failure by the Dispatcher and never
// disclosed in terse mode.
//
// The package also hosts the persistence-boundary failure variants and the
// translators that convert them into operational errors (see translate.go).
package apperr

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Status is the coarse classification reported to clients next to the
// HTTP status code.
type Status string

const (
	// StatusFail marks client-side problems (4xx).
	StatusFail Status = "fail"
	// StatusError marks everything else.
	StatusError Status = "error"
)

// StatusFor derives the Status for an HTTP status code: "fail" for codes in
// [400,500), "error" otherwise.
func StatusFor(code int) Status {
	if code >= 400 && code < 500 {
		return StatusFail
	}
	return StatusError
}

// maxStackFrames bounds the trace captured by New.
const maxStackFrames = 32

// Error is a classified application error.
//
// Fields:
//   - Message: human-readable description.
//   - StatusCode: HTTP status reported to the client.
//   - Status: derived from StatusCode (see StatusFor).
//   - IsOperational: true only for errors built by application code.
//   - Stack: diagnostic trace, rendered only in verbose mode.
//   - Cause: the wrapped original failure, if any.
type Error struct {
	Message       string
	StatusCode    int
	Status        Status
	IsOperational bool
	Stack         string
	Cause         error
}

// New builds an operational error. A statusCode <= 0 defaults to 500.
// The captured stack starts at the caller of New.
func New(message string, statusCode int) *Error {
	return newError(message, statusCode, 4)
}

// Newf is New with a formatted message.
func Newf(statusCode int, format string, args ...any) *Error {
	return newError(fmt.Sprintf(format, args...), statusCode, 4)
}

func newError(message string, statusCode, skip int) *Error {
	if statusCode <= 0 {
		statusCode = http.StatusInternalServerError
	}
	return &Error{
		Message:       message,
		StatusCode:    statusCode,
		Status:        StatusFor(statusCode),
		IsOperational: true,
		Stack:         captureStack(skip),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Unwrap exposes Cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// captureStack renders the goroutine's call stack starting skip frames above
// runtime.Callers, in the "function\n\tfile:line" layout of runtime/debug.
func captureStack(skip int) string {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// PanicError carries a value recovered from a panic together with the stack
// of the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (p *PanicError) Error() string {
	if err, ok := p.Value.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", p.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
