package providers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/noctivault/tests/fakes"
)

func TestClassifyFetchError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want failureClass
	}{
		{name: "not_found", err: fakes.GRPCNotFound("res"), want: classNotFound},
		{name: "unavailable", err: fakes.GRPCUnavailable("down"), want: classUnavailable},
		{name: "internal", err: fakes.GRPCInternal("oops"), want: classUnavailable},
		{name: "resource_exhausted", err: fakes.GRPCResourceExhausted(), want: classThrottled},
		{name: "permission_denied", err: fakes.GRPCPermissionDenied("no"), want: classAuth},
		{name: "unauthenticated", err: fakes.GRPCUnauthenticated("who"), want: classAuth},
		{name: "invalid_argument", err: fakes.GRPCInvalidArgument("bad"), want: classInvalidArgument},
		{name: "failed_precondition", err: fakes.GRPCFailedPrecondition("disabled"), want: classInvalidArgument},
		{name: "deadline_exceeded", err: fakes.GRPCDeadlineExceeded(), want: classDeadline},
		{name: "plain_error", err: errors.New("tcp reset"), want: classUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyFetchError(tt.err)
			assert.Equal(t, tt.want, got.class)
		})
	}
}

func TestClassifyFetchError_RetryInfo(t *testing.T) {
	t.Parallel()

	got := classifyFetchError(fakes.GRPCResourceExhaustedWithRetryInfo(750 * time.Millisecond))

	assert.Equal(t, classThrottled, got.class)
	assert.Equal(t, 750*time.Millisecond, got.retryAfter)
}

func TestClassifyFetchError_ThrottledWithoutRetryInfo(t *testing.T) {
	t.Parallel()

	got := classifyFetchError(fakes.GRPCResourceExhausted())

	assert.Equal(t, classThrottled, got.class)
	assert.Zero(t, got.retryAfter)
}

func TestFailureClass_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not-found", classNotFound.String())
	assert.Equal(t, "unavailable", classUnavailable.String())
	assert.Equal(t, "throttled", classThrottled.String())
	assert.Equal(t, "auth", classAuth.String())
	assert.Equal(t, "invalid-argument", classInvalidArgument.String())
	assert.Equal(t, "deadline", classDeadline.String())
	assert.Equal(t, "unknown", classUnknown.String())
}
