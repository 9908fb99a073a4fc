package providers

import (
	"fmt"

	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/pkg/provider"
)

// Compile-time checks that every driver satisfies the contract.
var (
	_ provider.Driver = (*GCPSecretManagerDriver)(nil)
	_ provider.Driver = (*AWSSecretsManagerDriver)(nil)
	_ provider.Driver = (*AzureKeyVaultDriver)(nil)
)

// Registry maps each provider kind to its driver. It is built once and is
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	drivers map[provider.Kind]provider.Driver
}

// DriverOptions carries per-driver options for NewDefaultRegistry.
type DriverOptions struct {
	GCP   []GCPDriverOption
	AWS   []AWSDriverOption
	Azure []AzureDriverOption
}

// NewRegistry creates a registry from drivers. Every driver must report a
// supported kind and no kind may be registered twice.
func NewRegistry(drivers ...provider.Driver) (*Registry, error) {
	r := &Registry{
		drivers: make(map[provider.Kind]provider.Driver, len(drivers)),
	}
	for _, d := range drivers {
		kind := d.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("driver reports unsupported kind %q", kind)
		}
		if _, exists := r.drivers[kind]; exists {
			return nil, fmt.Errorf("duplicate driver for kind %s", kind)
		}
		r.drivers[kind] = d
	}
	return r, nil
}

// NewDefaultRegistry creates the registry of built-in drivers, one per kind.
func NewDefaultRegistry(logger *logging.Logger, opts DriverOptions) *Registry {
	return &Registry{
		drivers: map[provider.Kind]provider.Driver{
			provider.KindGCP:   NewGCPSecretManagerDriver(logger, opts.GCP...),
			provider.KindAWS:   NewAWSSecretsManagerDriver(logger, opts.AWS...),
			provider.KindAzure: NewAzureKeyVaultDriver(logger, opts.Azure...),
		},
	}
}

// Driver returns the driver registered for kind.
func (r *Registry) Driver(kind provider.Kind) (provider.Driver, bool) {
	d, ok := r.drivers[kind]
	return d, ok
}

// Kinds returns the registered kinds in the canonical order.
func (r *Registry) Kinds() []provider.Kind {
	kinds := make([]provider.Kind, 0, len(r.drivers))
	for _, k := range provider.Kinds() {
		if _, ok := r.drivers[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// RequiredFields returns the credential fields kind's driver needs, or nil if
// no driver is registered for kind.
func (r *Registry) RequiredFields(kind provider.Kind) []string {
	if d, ok := r.drivers[kind]; ok {
		return d.RequiredFields()
	}
	return nil
}
