package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error classes surfaced by the catalog client. Callers match them with errors.Is.
var (
	// ErrNetwork is a transient connectivity failure: the request never got an answer.
	ErrNetwork = errors.New("catalog: network unavailable")
	// ErrAuth means the credentials were rejected; fatal for the session.
	ErrAuth = errors.New("catalog: unauthorized")
	// ErrValidation is a non-transient rejection of one request (bad payload, unknown id).
	ErrValidation = errors.New("catalog: rejected")
	// ErrServer is a 5xx answer from the catalog, or a 408/429 asking the caller to
	// come back later.
	ErrServer = errors.New("catalog: server error")
)

// Error carries the failed operation and HTTP status alongside the error class.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying the same request later may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return ErrServer
	case status >= 400:
		return ErrValidation
	default:
		return fmt.Errorf("catalog: unexpected status %d", status)
	}
}

// classifyTransport maps an error from http.Client.Do. Everything the transport reports
// (dial, DNS, reset, client timeout) is a connectivity failure, except the caller's own
// cancellation which is passed through unchanged.
func classifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
