package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

// SecretManagerStep is one scripted AccessSecretVersion outcome: either a
// payload or an error.
type SecretManagerStep struct {
	Data []byte
	Err  error
}

// Payload is a convenience step carrying a successful response body.
func Payload(data string) SecretManagerStep {
	return SecretManagerStep{Data: []byte(data)}
}

// Fail is a convenience step carrying an error.
func Fail(err error) SecretManagerStep {
	return SecretManagerStep{Err: err}
}

// FakeSecretManagerClient implements the provider's SecretManagerAPI with a
// scripted response sequence. Each AccessSecretVersion call consumes the
// next step; calls past the end of the script fail the configuration, not
// the backend. Static per-resource payloads can be set instead of (or
// underneath) a script.
type FakeSecretManagerClient struct {
	mu sync.Mutex

	// Script, when non-empty, is consumed call by call regardless of the
	// requested resource.
	Script []SecretManagerStep

	// Payloads maps full version resource names to response bodies,
	// consulted when the script is exhausted or absent.
	Payloads map[string][]byte

	// Requests records every requested resource name in call order.
	Requests []string

	// Closed reports whether Close was called.
	Closed bool
}

// NewFakeSecretManagerClient creates an empty fake.
func NewFakeSecretManagerClient() *FakeSecretManagerClient {
	return &FakeSecretManagerClient{Payloads: make(map[string][]byte)}
}

// SetPayload registers a static payload for a version resource name built
// from its parts.
func (f *FakeSecretManagerClient) SetPayload(project, name, version string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, name, version)
	f.Payloads[resource] = data
}

// AccessSecretVersion implements SecretManagerAPI.
func (f *FakeSecretManagerClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req.GetName())

	if len(f.Script) > 0 {
		step := f.Script[0]
		f.Script = f.Script[1:]
		if step.Err != nil {
			return nil, step.Err
		}
		return accessResponse(req.GetName(), step.Data), nil
	}

	if data, ok := f.Payloads[req.GetName()]; ok {
		return accessResponse(req.GetName(), data), nil
	}
	return nil, status.Errorf(codes.NotFound, "secret version %s not found", req.GetName())
}

// Close implements SecretManagerAPI.
func (f *FakeSecretManagerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// CallCount returns how many AccessSecretVersion calls were made.
func (f *FakeSecretManagerClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func accessResponse(name string, data []byte) *secretmanagerpb.AccessSecretVersionResponse {
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    name,
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	}
}

// gRPC status helpers for scripting backend failures.

// GRPCNotFound builds a NotFound status error.
func GRPCNotFound(resource string) error {
	return status.Errorf(codes.NotFound, "secret version %s not found", resource)
}

// GRPCUnavailable builds an Unavailable status error.
func GRPCUnavailable(message string) error {
	return status.Error(codes.Unavailable, message)
}

// GRPCInternal builds an Internal status error.
func GRPCInternal(message string) error {
	return status.Error(codes.Internal, message)
}

// GRPCPermissionDenied builds a PermissionDenied status error.
func GRPCPermissionDenied(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GRPCUnauthenticated builds an Unauthenticated status error.
func GRPCUnauthenticated(message string) error {
	return status.Error(codes.Unauthenticated, message)
}

// GRPCInvalidArgument builds an InvalidArgument status error.
func GRPCInvalidArgument(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

// GRPCFailedPrecondition builds a FailedPrecondition status error.
func GRPCFailedPrecondition(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

// GRPCDeadlineExceeded builds a DeadlineExceeded status error.
func GRPCDeadlineExceeded() error {
	return status.Error(codes.DeadlineExceeded, "deadline exceeded")
}

// GRPCResourceExhausted builds a ResourceExhausted status error without
// retry guidance.
func GRPCResourceExhausted() error {
	return status.Error(codes.ResourceExhausted, "quota exceeded")
}

// GRPCResourceExhaustedWithRetryInfo builds a ResourceExhausted status error
// carrying a RetryInfo detail with the given recommended delay.
func GRPCResourceExhaustedWithRetryInfo(retryAfter time.Duration) error {
	st := status.New(codes.ResourceExhausted, "quota exceeded")
	withDetails, err := st.WithDetails(&errdetails.RetryInfo{
		RetryDelay: durationpb.New(retryAfter),
	})
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
