package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage is returned in terse mode for failures that are not
// operational.
const GenericMessage = "Something went very wrong!"

var errNilFailure = errors.New("nil failure dispatched")

// Body is the JSON error envelope.
//
// Terse responses carry only Status and Message; verbose responses add Stack
// and Error. RequestID is filled in by the transport layer.
type Body struct {
	RequestID string  `json:"request_id,omitempty"`
	Status    Status  `json:"status"`
	Message   string  `json:"message,omitempty"`
	Stack     string  `json:"stack,omitempty"`
	Error     *Detail `json:"error,omitempty"`
}

// Detail is the verbose rendering of the failure value.
type Detail struct {
	Type          string `json:"type"`
	Message       string `json:"message"`
	StatusCode    int    `json:"status_code"`
	Status        Status `json:"status"`
	IsOperational bool   `json:"is_operational"`
	Cause         string `json:"cause,omitempty"`
}

// Response is the outcome of a single Dispatch call.
type Response struct {
	StatusCode int
	Body       Body
	// Err is the normalized (and possibly translated) error.
	Err *Error
	// Raw is the value handed to Dispatch.
	Raw error
	// Unexpected is set for non-operational failures, which operators must
	// see in the logs regardless of what the client receives.
	Unexpected bool
}

// Dispatcher turns any failure into exactly one response. Verbose selects
// diagnostic rendering (development); otherwise output is caller-safe.
//
// A Dispatcher holds no state besides its mode and is safe for concurrent use.
type Dispatcher struct {
	Verbose bool
}

// Dispatch normalizes raw, translates recognized storage failures, and
// renders the result for the configured mode.
func (d Dispatcher) Dispatch(raw error) Response {
	if raw == nil {
		raw = errNilFailure
	}

	e := Normalize(raw)
	if !e.IsOperational {
		if t, ok := Translate(raw); ok {
			e = t
		}
	}

	resp := Response{
		StatusCode: e.StatusCode,
		Err:        e,
		Raw:        raw,
		Unexpected: !e.IsOperational,
	}

	switch {
	case d.Verbose:
		resp.Body = Body{
			Status:  e.Status,
			Message: e.Message,
			Stack:   e.Stack,
			Error:   detailOf(e, raw),
		}
	case e.IsOperational:
		resp.Body = Body{Status: e.Status, Message: e.Message}
	default:
		resp.StatusCode = http.StatusInternalServerError
		resp.Body = Body{Status: StatusError, Message: GenericMessage}
	}
	return resp
}

// Normalize returns an *Error for raw with StatusCode and Status filled in.
// An *Error found in raw's chain is copied, never modified in place; any
// other value becomes a non-operational 500.
func Normalize(raw error) *Error {
	var ae *Error
	if errors.As(raw, &ae) && ae != nil {
		cp := *ae
		if cp.StatusCode <= 0 {
			cp.StatusCode = http.StatusInternalServerError
		}
		if cp.Status == "" {
			cp.Status = StatusFor(cp.StatusCode)
		}
		return &cp
	}

	e := &Error{
		Message:    raw.Error(),
		StatusCode: http.StatusInternalServerError,
		Status:     StatusError,
		Cause:      raw,
	}
	var pe *PanicError
	if errors.As(raw, &pe) {
		e.Stack = string(pe.Stack)
	}
	return e
}

func detailOf(e *Error, raw error) *Detail {
	d := &Detail{
		Type:          fmt.Sprintf("%T", raw),
		Message:       raw.Error(),
		StatusCode:    e.StatusCode,
		Status:        e.Status,
		IsOperational: e.IsOperational,
	}
	if e.Cause != nil && e.Cause.Error() != d.Message {
		d.Cause = e.Cause.Error()
	}
	return d
}
