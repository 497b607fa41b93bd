package providers

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/systmms/noctivault/internal/logging"
	"github.com/systmms/noctivault/pkg/provider"
)

// Retry policy. Attempts count calls, not sleeps: three unavailable attempts
// produce two backoff sleeps before the provider gives up.
const (
	// maxAttempts bounds unavailable and throttled failures per class.
	maxAttempts = 3

	// notFoundAttempts allows exactly one retry for not-found, absorbing
	// read-after-write lag on freshly added secret versions.
	notFoundAttempts = 2

	notFoundRetryDelay   = 200 * time.Millisecond
	unavailableBaseDelay = 200 * time.Millisecond
	throttledBaseDelay   = time.Second
)

// SecretManagerAPI is the slice of the Secret Manager client the provider
// uses. *secretmanager.Client satisfies it; tests inject a scripted fake.
type SecretManagerAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// RemoteConfig configures construction of a remote provider.
type RemoteConfig struct {
	// CredentialsFile is a service-account key file path. Empty means
	// application-default credentials.
	CredentialsFile string

	// Endpoint overrides the API endpoint, for the Secret Manager emulator.
	// Connections to an override skip authentication and TLS.
	Endpoint string

	// Logger receives retry and failure events. Nil disables logging.
	Logger *logging.Logger

	// Sleep is the backoff clock, defaulting to time.Sleep. Tests inject a
	// recorder to assert exact delay sequences without waiting.
	Sleep func(time.Duration)
}

// GoogleProvider fetches secrets from Google Cloud Secret Manager. All retry
// policy lives here: callers see either a payload or a terminal error from
// the provider taxonomy.
type GoogleProvider struct {
	api     SecretManagerAPI
	logger  *logging.Logger
	sleep   func(time.Duration)
	metrics *RemoteMetrics
}

// NewGoogleProvider constructs a provider backed by the real Secret Manager
// client. The caller owns Close.
func NewGoogleProvider(ctx context.Context, cfg RemoteConfig) (*GoogleProvider, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts,
			option.WithEndpoint(cfg.Endpoint),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return NewGoogleProviderWithAPI(client, cfg), nil
}

// NewGoogleProviderWithAPI wires an existing API implementation, real or
// fake. Only Logger and Sleep are read from cfg.
func NewGoogleProviderWithAPI(api SecretManagerAPI, cfg RemoteConfig) *GoogleProvider {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &GoogleProvider{
		api:     api,
		logger:  cfg.Logger,
		sleep:   sleep,
		metrics: NewRemoteMetrics(),
	}
}

// Name implements provider.Provider.
func (p *GoogleProvider) Name() string { return "gcp-secret-manager" }

// Close releases the underlying client connection.
func (p *GoogleProvider) Close() error { return p.api.Close() }

// Fetch resolves ref against Secret Manager. Transient failures are retried
// per class: not-found once after a fixed delay, unavailability with
// exponential backoff, throttling with the backend-recommended delay when
// one is present. Auth and argument failures fail immediately. The returned
// payload is guaranteed valid UTF-8.
func (p *GoogleProvider) Fetch(ctx context.Context, ref provider.Ref) (string, error) {
	if ref.Platform != provider.PlatformGoogle {
		return "", provider.RemoteArgumentError{
			Reason: fmt.Sprintf("unsupported platform: %q", ref.Platform),
		}
	}
	resource := buildResourceName(ref.Project, ref.Name, ref.Version)

	start := time.Now()
	value, err := p.fetchWithRetry(ctx, ref, resource)
	p.metrics.RecordFetch(fetchOutcome(err), time.Since(start).Seconds())
	return value, err
}

// fetchWithRetry is the retry state machine. Attempt counters are kept per
// failure class, so a sequence that alternates classes grants each class its
// own budget.
func (p *GoogleProvider) fetchWithRetry(ctx context.Context, ref provider.Ref, resource string) (string, error) {
	var notFound, unavailable, throttled int

	for {
		resp, err := p.api.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: resource,
		})
		if err == nil {
			data := resp.GetPayload().GetData()
			if !utf8.Valid(data) {
				p.debugf("secret %s/%s@%s payload is not valid UTF-8", ref.Project, ref.Name, ref.Version)
				return "", provider.RemoteDecodeError{Resource: resource}
			}
			return string(data), nil
		}

		verdict := classifyFetchError(err)
		switch verdict.class {
		case classNotFound:
			notFound++
			if notFound >= notFoundAttempts {
				p.debugf("secret %s/%s@%s not found after %d attempts", ref.Project, ref.Name, ref.Version, notFound)
				return "", provider.MissingRemoteSecretError{
					Project: ref.Project,
					Name:    ref.Name,
					Version: ref.Version,
				}
			}
			p.retry(ref, verdict.class, notFound, notFoundRetryDelay)

		case classUnavailable:
			unavailable++
			if unavailable >= maxAttempts {
				p.debugf("secret %s/%s@%s unavailable after %d attempts", ref.Project, ref.Name, ref.Version, unavailable)
				return "", provider.RemoteUnavailableError{Resource: resource, Attempts: unavailable, Err: err}
			}
			p.retry(ref, verdict.class, unavailable, backoffDelay(unavailableBaseDelay, unavailable))

		case classThrottled:
			throttled++
			if throttled >= maxAttempts {
				p.debugf("secret %s/%s@%s still throttled after %d attempts", ref.Project, ref.Name, ref.Version, throttled)
				return "", provider.RemoteUnavailableError{Resource: resource, Attempts: throttled, Err: err}
			}
			delay := verdict.retryAfter
			if delay <= 0 {
				delay = backoffDelay(throttledBaseDelay, throttled)
			}
			p.retry(ref, verdict.class, throttled, delay)

		case classAuth:
			p.debugf("access to %s denied: %v", resource, err)
			return "", provider.AuthorizationError{Resource: resource, Err: err}

		case classInvalidArgument:
			p.debugf("backend rejected request for %s: %v", resource, err)
			return "", provider.RemoteArgumentError{Reason: "backend rejected request for " + resource, Err: err}

		case classDeadline:
			p.debugf("deadline exceeded for %s: %v", resource, err)
			return "", provider.RemoteUnavailableError{Resource: resource, Attempts: 1, Err: err}

		default:
			p.debugf("unclassified failure for %s: %v", resource, err)
			return "", fmt.Errorf("failed to access secret %s: %w", resource, err)
		}
	}
}

// retry logs one retry decision, records it, and sleeps.
func (p *GoogleProvider) retry(ref provider.Ref, class failureClass, attempt int, delay time.Duration) {
	if p.logger != nil {
		p.logger.Warn("retrying %s secret %s/%s@%s (attempt %d) in %s",
			class, ref.Project, ref.Name, ref.Version, attempt, delay)
	}
	p.metrics.RecordRetry(class.String())
	p.sleep(delay)
}

func (p *GoogleProvider) debugf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(format, args...)
	}
}

// backoffDelay is base·2^(attempt−1): attempt 1 sleeps the base, attempt 2
// twice that.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

// buildResourceName renders the Secret Manager version resource path.
func buildResourceName(project, name string, version provider.Version) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, name, version)
}

// fetchOutcome is the metrics label for a finished fetch.
func fetchOutcome(err error) string {
	if err == nil {
		return "success"
	}
	switch err.(type) {
	case provider.MissingRemoteSecretError:
		return "not-found"
	case provider.AuthorizationError:
		return "auth"
	case provider.RemoteArgumentError:
		return "invalid-argument"
	case provider.RemoteUnavailableError:
		return "unavailable"
	case provider.RemoteDecodeError:
		return "decode"
	default:
		return "unknown"
	}
}
