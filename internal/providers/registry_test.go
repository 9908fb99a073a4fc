package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/keyproxy/internal/providers"
	"github.com/systmms/keyproxy/pkg/provider"
)

type stubDriver struct {
	kind provider.Kind
}

func (s stubDriver) Kind() provider.Kind      { return s.kind }
func (s stubDriver) RequiredFields() []string { return []string{"token"} }
func (s stubDriver) Store(context.Context, string, string, provider.Credentials) (provider.Reference, error) {
	return provider.Reference("stub"), nil
}

func TestDefaultRegistry(t *testing.T) {
	r := providers.NewDefaultRegistry(nil, providers.DriverOptions{})

	assert.Equal(t, provider.Kinds(), r.Kinds())

	for _, kind := range provider.Kinds() {
		d, ok := r.Driver(kind)
		require.True(t, ok, "no driver for %s", kind)
		assert.Equal(t, kind, d.Kind())
		assert.NotEmpty(t, r.RequiredFields(kind))
	}

	_, ok := r.Driver(provider.Kind("HashiVault"))
	assert.False(t, ok)
	assert.Nil(t, r.RequiredFields(provider.Kind("HashiVault")))
}

func TestNewRegistry(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		r, err := providers.NewRegistry(stubDriver{kind: provider.KindAzure}, stubDriver{kind: provider.KindGCP})
		require.NoError(t, err)
		assert.Equal(t, []provider.Kind{provider.KindGCP, provider.KindAzure}, r.Kinds())
	})

	t.Run("duplicate kind", func(t *testing.T) {
		_, err := providers.NewRegistry(stubDriver{kind: provider.KindAWS}, stubDriver{kind: provider.KindAWS})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("unsupported kind", func(t *testing.T) {
		_, err := providers.NewRegistry(stubDriver{kind: provider.Kind("HashiVault")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}
