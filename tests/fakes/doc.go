// Package fakes provides test doubles for the noctivault provider
// interfaces.
//
// The fakes are manually implemented (not generated) to give tests precise
// control over backend behavior, in particular the exact failure sequence a
// retry loop observes.
//
// Usage:
//
//	fake := fakes.NewFakeSecretManagerClient()
//	fake.Script = []fakes.SecretManagerStep{
//	    fakes.Fail(fakes.GRPCUnavailable("backend down")),
//	    fakes.Payload("s3cret"),
//	}
//	p := providers.NewGoogleProviderWithAPI(fake, providers.RemoteConfig{})
//	// Fetch retries once, then succeeds...
package fakes
