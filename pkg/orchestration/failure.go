package orchestration

import "fmt"

// StatusCode is the closed status taxonomy spec.md §6 exposes when the
// pipeline is fronted by HTTP or an equivalent transport. The pipeline
// itself never speaks HTTP; Stage failures map onto this set so a caller
// that does front it with a transport has a single place to look up the
// mapping.
type StatusCode string

const (
	StatusOK                  StatusCode = "OK"
	StatusUnauthorized        StatusCode = "Unauthorized"
	StatusUnprocessable       StatusCode = "Unprocessable"
	StatusForbidden           StatusCode = "Forbidden"
	StatusNotImplemented      StatusCode = "NotImplemented"
	StatusServiceUnavailable  StatusCode = "ServiceUnavailable"
	StatusConflict            StatusCode = "Conflict"
)

// UnauthorizedError is stage 1's failure mode: the bearer credential
// presented did not match, under constant-time comparison.
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string { return "orchestration: unauthorized" }

// InvalidError is stage 2's failure mode: the request payload failed
// schema validation at the named JSON pointer.
type InvalidError struct {
	Pointer string
	Message string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("orchestration: invalid at %s: %s", e.Pointer, e.Message)
}

// HardBlockedError is stage 3's failure mode: the compliance tensor's
// Sanctions cell evaluated NonCompliant for this entity/jurisdiction.
type HardBlockedError struct {
	Reason string
}

func (e *HardBlockedError) Error() string {
	return fmt.Sprintf("orchestration: hard blocked: %s", e.Reason)
}

// PrimitiveUnavailableError is stage 4's failure mode when no external
// primitive client is configured for the request's primitive kind.
type PrimitiveUnavailableError struct {
	Primitive string
}

func (e *PrimitiveUnavailableError) Error() string {
	return fmt.Sprintf("orchestration: primitive %q not configured", e.Primitive)
}

// PrimitiveRejectedError is stage 4's failure mode when the external
// primitive explicitly rejected the call with a service-defined code.
type PrimitiveRejectedError struct {
	Code string
}

func (e *PrimitiveRejectedError) Error() string {
	return fmt.Sprintf("orchestration: primitive rejected: %s", e.Code)
}

// PrimitiveTransientError is stage 4's failure mode for a retryable
// external failure (timeout, connection reset, 5xx-equivalent).
type PrimitiveTransientError struct {
	Retryable bool
	Cause     error
}

func (e *PrimitiveTransientError) Error() string {
	return fmt.Sprintf("orchestration: primitive transient failure (retryable=%v): %v", e.Retryable, e.Cause)
}

func (e *PrimitiveTransientError) Unwrap() error { return e.Cause }

// ConflictError is raised when corridor state observed by the caller
// (PrevRoot/Sequence) no longer matches the chain's current head.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("orchestration: conflict: %s", e.Detail)
}

// StatusFor maps a pipeline error to spec.md §6's status-code taxonomy.
// A nil error maps to StatusOK.
func StatusFor(err error) StatusCode {
	switch err.(type) {
	case nil:
		return StatusOK
	case *UnauthorizedError:
		return StatusUnauthorized
	case *InvalidError:
		return StatusUnprocessable
	case *HardBlockedError:
		return StatusForbidden
	case *PrimitiveUnavailableError:
		return StatusNotImplemented
	case *PrimitiveTransientError:
		return StatusServiceUnavailable
	case *ConflictError:
		return StatusConflict
	default:
		return StatusUnprocessable
	}
}
