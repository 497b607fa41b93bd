package providers

import (
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// failureClass buckets backend failures by how the retry loop must treat
// them. The mapping from gRPC status codes to classes is the provider's
// contract regardless of which backend produced the status.
type failureClass int

const (
	// classUnknown is anything the table below does not name, including
	// non-status errors. Never retried.
	classUnknown failureClass = iota

	// classNotFound gets exactly one retry after a fixed delay, since a
	// freshly created secret version can lag behind its first read.
	classNotFound

	// classUnavailable covers transient server-side failure (Unavailable,
	// Internal). Retried with exponential backoff.
	classUnavailable

	// classThrottled is rate limiting. Retried, honoring the backend's
	// RetryInfo delay when it carries one.
	classThrottled

	// classAuth is a permission or authentication failure. Never retried.
	classAuth

	// classInvalidArgument is a request the backend rejected outright
	// (InvalidArgument, FailedPrecondition). Never retried.
	classInvalidArgument

	// classDeadline is a backend-reported timeout. Never retried; surfaces
	// as unavailability.
	classDeadline
)

func (c failureClass) String() string {
	switch c {
	case classNotFound:
		return "not-found"
	case classUnavailable:
		return "unavailable"
	case classThrottled:
		return "throttled"
	case classAuth:
		return "auth"
	case classInvalidArgument:
		return "invalid-argument"
	case classDeadline:
		return "deadline"
	default:
		return "unknown"
	}
}

// classified is the classifier's verdict on one failed call. RetryAfter is
// only set for throttled failures whose status details carry a positive
// RetryInfo delay.
type classified struct {
	class      failureClass
	retryAfter time.Duration
}

// classifyFetchError maps one backend failure to its failure class. Pure
// function over the error; the retry loop owns attempt counting and delays.
func classifyFetchError(err error) classified {
	st, ok := status.FromError(err)
	if !ok {
		return classified{class: classUnknown}
	}
	switch st.Code() {
	case codes.NotFound:
		return classified{class: classNotFound}
	case codes.Unavailable, codes.Internal:
		return classified{class: classUnavailable}
	case codes.ResourceExhausted:
		return classified{class: classThrottled, retryAfter: retryAfterFromStatus(st)}
	case codes.PermissionDenied, codes.Unauthenticated:
		return classified{class: classAuth}
	case codes.InvalidArgument, codes.FailedPrecondition:
		return classified{class: classInvalidArgument}
	case codes.DeadlineExceeded:
		return classified{class: classDeadline}
	default:
		return classified{class: classUnknown}
	}
}

// retryAfterFromStatus extracts the backend-recommended delay from a
// status's RetryInfo detail, or zero when absent or non-positive.
func retryAfterFromStatus(st *status.Status) time.Duration {
	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.RetryInfo)
		if !ok || info.GetRetryDelay() == nil {
			continue
		}
		if d := info.GetRetryDelay().AsDuration(); d > 0 {
			return d
		}
	}
	return 0
}
