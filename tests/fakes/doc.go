// Package fakes provides test doubles for keyproxy's vendor clients and stores.
//
// This package contains fake implementations of the narrow SDK client
// interfaces the drivers depend on, plus in-memory user and audit stores, so
// drivers and the dispatcher can be unit tested without real services.
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior. All fakes are safe for concurrent use.
//
// Usage:
//
//	fake := fakes.NewFakeSecretsManagerClient()
//	fake.AddSecretString("db-pass", "existing")
//	driver := providers.NewAWSSecretsManagerDriver(nil,
//	    providers.WithSecretsManagerClient(fake))
//	// driver.Store(ctx, "db-pass", ...) now reports a conflict
package fakes
