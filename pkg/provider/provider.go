// Package provider defines the capability interface and shared types for
// noctivault secret providers.
//
// A provider answers exactly one question: given a (platform, project, name,
// version) reference, what is the raw string value of that secret? Two
// implementations exist: the local mock provider, a pure lookup table built
// from a store document, and the remote provider backed by Google Cloud
// Secret Manager.
//
// # Error Handling
//
// Fetch failures use the closed set of error types in this package:
//   - MissingLocalMockError for absent mock entries
//   - MissingRemoteSecretError for secrets the backend does not have
//   - AuthorizationError for permission and authentication failures
//   - RemoteArgumentError for malformed or rejected requests
//   - RemoteUnavailableError for backend outages and exhausted retries
//   - RemoteDecodeError for payloads that are not valid UTF-8
//
// Callers above the provider (the resolver in particular) never retry and
// never rewrap: retry policy lives entirely inside the remote provider.
//
// # Security Considerations
//
// Implementations must never log secret values. Reference coordinates
// (project, name, version) are safe to log; payloads are not.
package provider

import (
	"context"
	"fmt"
	"strconv"
)

// Platform identifies the remote backend family a secret belongs to.
type Platform string

// PlatformGoogle is the only supported platform. Documents naming any other
// platform fail validation.
const PlatformGoogle Platform = "google"

// ParsePlatform validates a platform string from a document.
func ParsePlatform(s string) (Platform, error) {
	if Platform(s) != PlatformGoogle {
		return "", fmt.Errorf("unsupported platform: %q", s)
	}
	return PlatformGoogle, nil
}

// Version selects a secret version: either a positive integer or "latest".
// The zero value is "latest".
type Version struct {
	n int
}

// Latest selects the highest version the backend knows about. For the local
// mock provider that is the maximum integer version declared for the key.
var Latest = Version{}

// NumberedVersion returns a concrete version. n must be positive.
func NumberedVersion(n int) (Version, error) {
	if n < 1 {
		return Version{}, fmt.Errorf("version must be a positive integer, got %d", n)
	}
	return Version{n: n}, nil
}

// IsLatest reports whether this version selects the newest available value.
func (v Version) IsLatest() bool { return v.n == 0 }

// Number returns the concrete version number, or false for "latest".
func (v Version) Number() (int, bool) {
	if v.n == 0 {
		return 0, false
	}
	return v.n, true
}

func (v Version) String() string {
	if v.n == 0 {
		return "latest"
	}
	return strconv.Itoa(v.n)
}

// Ref is the full coordinate of one secret fetch.
type Ref struct {
	Platform Platform
	Project  string
	Name     string
	Version  Version
}

// Resource renders the reference the way error messages and logs display it.
func (r Ref) Resource() string {
	return fmt.Sprintf("%s/%s/%s@%s", r.Platform, r.Project, r.Name, r.Version)
}

// Provider fetches raw secret strings.
//
// Fetch must be safe to call from independent resolve passes; the only
// mutable state an implementation may carry is its injected clock, which is
// fixed at construction time.
type Provider interface {
	// Name returns a stable lowercase identifier used in logs and errors.
	Name() string

	// Fetch returns the raw UTF-8 value at ref, or one of the fetch error
	// types documented on this package. The context covers the network call;
	// retry backoff sleeps are not cancellable.
	Fetch(ctx context.Context, ref Ref) (string, error)
}

// MissingLocalMockError reports a mock lookup miss. Version is set only when
// the key existed but the requested version did not.
type MissingLocalMockError struct {
	Platform Platform
	Project  string
	Name     string
	Version  string
}

func (e MissingLocalMockError) Error() string {
	msg := fmt.Sprintf("no local mock for %s/%s/%s", e.Platform, e.Project, e.Name)
	if e.Version != "" {
		msg += " version " + e.Version
	}
	return msg
}

// MissingRemoteSecretError reports that the backend has no such secret or
// version, confirmed by one retry.
type MissingRemoteSecretError struct {
	Project string
	Name    string
	Version Version
}

func (e MissingRemoteSecretError) Error() string {
	return fmt.Sprintf("remote secret not found: projects/%s/secrets/%s/versions/%s", e.Project, e.Name, e.Version)
}

// AuthorizationError reports a permission or authentication failure. Never
// retried.
type AuthorizationError struct {
	Resource string
	Err      error
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to access %s: %v", e.Resource, e.Err)
}

func (e AuthorizationError) Unwrap() error { return e.Err }

// RemoteArgumentError reports a request the backend rejected as malformed,
// or a reference this provider cannot serve at all (wrong platform).
type RemoteArgumentError struct {
	Reason string
	Err    error
}

func (e RemoteArgumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e RemoteArgumentError) Unwrap() error { return e.Err }

// RemoteUnavailableError reports backend unavailability: a timeout, or an
// outage/throttle that survived every retry attempt.
type RemoteUnavailableError struct {
	Resource string
	Attempts int
	Err      error
}

func (e RemoteUnavailableError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("backend unavailable for %s after %d attempts: %v", e.Resource, e.Attempts, e.Err)
	}
	return fmt.Sprintf("backend unavailable for %s: %v", e.Resource, e.Err)
}

func (e RemoteUnavailableError) Unwrap() error { return e.Err }

// RemoteDecodeError reports a successfully fetched payload that is not valid
// UTF-8 and therefore cannot be exposed as a string secret.
type RemoteDecodeError struct {
	Resource string
}

func (e RemoteDecodeError) Error() string {
	return "secret payload is not valid UTF-8: " + e.Resource
}
