package docset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/docsets/internal/config"
)

func TestSelectSecurity(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		for _, typ := range []string{"None", "none", " NONE "} {
			scheme, ctx, err := SelectSecurity(config.Authorization{Name: "Auth", Type: typ})
			require.NoError(t, err)
			assert.Nil(t, scheme, typ)
			assert.Nil(t, ctx, typ)
		}
	})

	t.Run("basic", func(t *testing.T) {
		t.Parallel()
		scheme, ctx, err := SelectSecurity(config.Authorization{Name: "Basic", Type: "basicauth"})
		require.NoError(t, err)
		require.NotNil(t, scheme)
		assert.Equal(t, SecurityScheme{Name: "Basic", Kind: SchemeBasicAuth}, *scheme)
		require.NotNil(t, ctx)
		assert.Equal(t, DefaultAuthRegex, ctx.PathRegex())
	})

	t.Run("api key for any other type", func(t *testing.T) {
		t.Parallel()
		for _, typ := range []string{"ApiKey", "", "OAuth2"} {
			scheme, ctx, err := SelectSecurity(config.Authorization{Name: "Authorization", Type: typ, KeyName: "TOKEN"})
			require.NoError(t, err)
			require.NotNil(t, scheme, typ)
			assert.Equal(t, SecurityScheme{Name: "Authorization", Kind: SchemeAPIKey, KeyName: "TOKEN", In: HeaderLocation}, *scheme)
			require.NotNil(t, ctx)
		}
	})

	t.Run("context", func(t *testing.T) {
		t.Parallel()
		_, ctx, err := SelectSecurity(config.Authorization{Name: "Authorization", Type: "ApiKey", AuthRegex: "/api/.*"})
		require.NoError(t, err)
		assert.Equal(t, []SecurityReference{{
			Reference: "Authorization",
			Scopes:    []Scope{{Scope: "global", Description: "accessEverything"}},
		}}, ctx.References())
		assert.Equal(t, "/api/.*", ctx.PathRegex())
		assert.True(t, ctx.Applies("/api/users"))
		assert.False(t, ctx.Applies("/public/api/users"))
	})

	t.Run("references are copies", func(t *testing.T) {
		t.Parallel()
		_, ctx, err := SelectSecurity(config.DefaultAuthorization())
		require.NoError(t, err)
		refs := ctx.References()
		refs[0].Scopes[0].Scope = "mutated"
		assert.Equal(t, "global", ctx.References()[0].Scopes[0].Scope)
	})

	t.Run("invalid regex", func(t *testing.T) {
		t.Parallel()
		_, _, err := SelectSecurity(config.Authorization{Name: "A", Type: "ApiKey", AuthRegex: "(unclosed"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration))
		var ce *ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "authorization.auth-regex", ce.Field)
	})
}
