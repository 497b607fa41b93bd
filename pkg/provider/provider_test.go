package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	platform, err := ParsePlatform("google")
	require.NoError(t, err)
	assert.Equal(t, PlatformGoogle, platform)

	_, err = ParsePlatform("aws")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported platform: "aws"`)

	_, err = ParsePlatform("")
	assert.Error(t, err)
}

func TestVersion_Latest(t *testing.T) {
	t.Parallel()

	var v Version
	assert.True(t, v.IsLatest())
	assert.Equal(t, "latest", v.String())

	_, ok := v.Number()
	assert.False(t, ok)

	assert.True(t, Latest.IsLatest())
}

func TestNumberedVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{name: "one", n: 1},
		{name: "large", n: 9001},
		{name: "zero_rejected", n: 0, wantErr: true},
		{name: "negative_rejected", n: -3, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := NumberedVersion(tt.n)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "positive integer")
				return
			}

			require.NoError(t, err)
			assert.False(t, v.IsLatest())
			n, ok := v.Number()
			assert.True(t, ok)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestRef_Resource(t *testing.T) {
	t.Parallel()

	ref := Ref{
		Platform: PlatformGoogle,
		Project:  "acme-prod",
		Name:     "db-password",
	}
	assert.Equal(t, "google/acme-prod/db-password@latest", ref.Resource())

	v, err := NumberedVersion(7)
	require.NoError(t, err)
	ref.Version = v
	assert.Equal(t, "google/acme-prod/db-password@7", ref.Resource())
}

func TestMissingLocalMockError_Message(t *testing.T) {
	t.Parallel()

	err := MissingLocalMockError{
		Platform: PlatformGoogle,
		Project:  "acme-prod",
		Name:     "db-password",
	}
	assert.Equal(t, "no local mock for google/acme-prod/db-password", err.Error())

	err.Version = "3"
	assert.Equal(t, "no local mock for google/acme-prod/db-password version 3", err.Error())
}

func TestMissingRemoteSecretError_Message(t *testing.T) {
	t.Parallel()

	v, err := NumberedVersion(2)
	require.NoError(t, err)

	missing := MissingRemoteSecretError{Project: "acme-prod", Name: "db-password", Version: v}
	assert.Equal(t, "remote secret not found: projects/acme-prod/secrets/db-password/versions/2", missing.Error())

	missing.Version = Latest
	assert.Contains(t, missing.Error(), "versions/latest")
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")

	var err error = AuthorizationError{Resource: "google/p/n@latest", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "not authorized")

	err = RemoteArgumentError{Reason: "bad request", Err: base}
	assert.ErrorIs(t, err, base)

	err = RemoteUnavailableError{Resource: "google/p/n@latest", Attempts: 3, Err: base}
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRemoteArgumentError_WithoutCause(t *testing.T) {
	t.Parallel()

	err := RemoteArgumentError{Reason: "platform not supported by this provider"}
	assert.Equal(t, "platform not supported by this provider", err.Error())
}

func TestRemoteUnavailableError_SingleAttempt(t *testing.T) {
	t.Parallel()

	err := RemoteUnavailableError{Resource: "google/p/n@latest", Attempts: 1, Err: errors.New("deadline exceeded")}
	assert.NotContains(t, err.Error(), "attempts")
}

func TestRemoteDecodeError_Message(t *testing.T) {
	t.Parallel()

	err := RemoteDecodeError{Resource: "google/acme-prod/blob@latest"}
	assert.Equal(t, "secret payload is not valid UTF-8: google/acme-prod/blob@latest", err.Error())
}
