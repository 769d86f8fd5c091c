package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/koreanvocab/vocab-dashboard/internal/httpclient"
)

// Kind is a coarse error classification used for logs and metric attributes.
type Kind string

const (
	// KindNone is reported for a nil error
	KindNone Kind = ""
	// KindNetwork means the request could not complete
	KindNetwork Kind = "network"
	// KindService means the service answered with a failure or an unusable body
	KindService Kind = "service"
	// KindCanceled means the caller gave up on the request
	KindCanceled Kind = "canceled"
	// KindUnknown is anything else
	KindUnknown Kind = "unknown"
)

// NetworkError means a request could not complete: timeout, DNS failure,
// connection refused.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServiceError means the service was reachable but answered with a failure
// status, a service-reported error, or a malformed body.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError builds a ServiceError for a body the client could not use.
func newServiceError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}

// wrapTransportError turns whatever the transport returned into one of the
// typed errors above.
func wrapTransportError(op string, err error) error {
	if err == nil {
		return nil
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return &ServiceError{
			Op:         op,
			StatusCode: httpErr.StatusCode,
			Message:    httpErr.Message,
			Err:        err,
		}
	}

	return &NetworkError{Op: op, Err: err}
}

// Classify maps an error to its Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return KindService
	}

	var networkErr *NetworkError
	if errors.As(err, &networkErr) {
		return KindNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	return KindUnknown
}
