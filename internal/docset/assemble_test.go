package docset

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/docsets/internal/config"
)

func baseTree() *config.Tree {
	tree := config.Defaults()
	tree.Global.Host = "api.example.com"
	tree.Global.Metadata = config.Metadata{
		Title:       "Shop API",
		Description: "All shop endpoints",
		Version:     "1.4.0",
		Contact:     config.Contact{Name: "Platform", Email: "platform@example.com"},
	}
	tree.Global.Parameters = []config.Parameter{
		{Name: "X-Trace", ParameterType: "header", ModelRef: "string"},
		{Name: "X-Tenant", ParameterType: "header", ModelRef: "string", Required: true},
	}
	return tree
}

func TestAssemble_Ungrouped(t *testing.T) {
	t.Parallel()

	tree := baseTree()
	descriptors, reg, err := Assemble(tree)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{DefaultKey}, reg.Names())

	d, ok := reg.Get(DefaultKey)
	require.True(t, ok)
	assert.Same(t, descriptors[0], d)
	assert.Equal(t, "", d.GroupName())
	assert.Equal(t, DefaultKey, d.Key())
	assert.Equal(t, "api.example.com", d.Host())
	assert.Equal(t, tree.Global.Metadata, d.Metadata())
	assert.Equal(t, tree.Global.Parameters, d.Parameters())
	assert.True(t, d.Paths().Match("/anything/at/all"))
	assert.True(t, d.Includes(Endpoint{Path: "/orders", Method: MethodGet, Package: "com.shop"}))
	assert.True(t, d.UseDefaultResponses())
	assert.Equal(t, []int{200, 404, 403, 401}, codes(d.Responses().For(MethodGet)))
	require.NotNil(t, d.Scheme())
	assert.Equal(t, SchemeAPIKey, d.Scheme().Kind)
	assert.Equal(t, config.DefaultUIConfig(), reg.UI())
}

func TestAssemble_Grouped(t *testing.T) {
	t.Parallel()

	tree := baseTree()
	tree.Global.IgnoredParameterTypes = []string{"javax.servlet.http.HttpServletRequest"}
	tree.Groups = []config.Group{
		{Name: "public", GroupConfig: config.GroupConfig{
			Metadata:  &config.Metadata{Title: "Public API"},
			Selection: &config.SelectionRule{BasePackage: "com.shop.public", BasePaths: []string{"/api/**"}, ExcludePaths: []string{"/api/admin/**"}},
			Parameters: []config.Parameter{
				{Name: "X-Tenant", ParameterType: "header", ModelRef: "string", Required: false},
			},
		}},
		{Name: "internal", GroupConfig: config.GroupConfig{
			IgnoredParameterTypes: []string{"java.security.Principal"},
		}},
	}

	descriptors, reg, err := Assemble(tree)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	assert.Equal(t, []string{"public", "internal"}, reg.Names())
	_, ok := reg.Get(DefaultKey)
	assert.False(t, ok)

	t.Run("metadata inherits field by field", func(t *testing.T) {
		pub, ok := reg.Get("public")
		require.True(t, ok)
		meta := pub.Metadata()
		assert.Equal(t, "Public API", meta.Title)
		assert.Equal(t, "All shop endpoints", meta.Description)
		assert.Equal(t, "1.4.0", meta.Version)
		assert.Equal(t, tree.Global.Metadata.Contact, meta.Contact)

		internal, _ := reg.Get("internal")
		assert.Equal(t, tree.Global.Metadata, internal.Metadata())
	})

	t.Run("parameters", func(t *testing.T) {
		pub, _ := reg.Get("public")
		params := pub.Parameters()
		assert.Equal(t, []string{"X-Trace", "X-Tenant"}, names(params))
		assert.False(t, params[1].Required)

		internal, _ := reg.Get("internal")
		assert.Equal(t, tree.Global.Parameters, internal.Parameters())
	})

	t.Run("selection", func(t *testing.T) {
		pub, _ := reg.Get("public")
		assert.True(t, pub.Includes(Endpoint{Path: "/api/users", Package: "com.shop.public.users"}))
		assert.False(t, pub.Includes(Endpoint{Path: "/api/admin/x", Package: "com.shop.public"}))
		assert.False(t, pub.Includes(Endpoint{Path: "/api/users", Package: "com.shop.internal"}))

		internal, _ := reg.Get("internal")
		assert.True(t, internal.Includes(Endpoint{Path: "/api/admin/x", Package: "anything"}))
		assert.Equal(t, []string{MatchAll}, internal.Paths().BasePaths())
	})

	t.Run("ignored parameter types replace", func(t *testing.T) {
		pub, _ := reg.Get("public")
		assert.Equal(t, tree.Global.IgnoredParameterTypes, pub.IgnoredParameterTypes())
		internal, _ := reg.Get("internal")
		assert.Equal(t, []string{"java.security.Principal"}, internal.IgnoredParameterTypes())
	})

	t.Run("group name", func(t *testing.T) {
		pub, _ := reg.Get("public")
		assert.Equal(t, "public", pub.GroupName())
	})
}

func TestAssemble_ResponseUnion(t *testing.T) {
	t.Parallel()

	build := func(apply bool) *Descriptor {
		tree := baseTree()
		tree.Global.ApplyDefaultResponses = apply
		tree.Global.Responses = config.ResponseCatalog{
			"all": {{Code: 500, Message: "Server Error"}},
			"get": {{Code: 404, Message: "not found"}, {Code: 400, Message: "bad request"}},
		}
		tree.Groups = []config.Group{{Name: "orders"}}
		_, reg, err := Assemble(tree)
		require.NoError(t, err)
		d, ok := reg.Get("orders")
		require.True(t, ok)
		return d
	}

	off := build(false)
	assert.False(t, off.UseDefaultResponses())
	assert.Equal(t, []int{500, 404, 400}, codes(off.Responses().For(MethodGet)))
	assert.Equal(t, []int{500}, codes(off.Responses().For(MethodPost)))

	on := build(true)
	assert.Equal(t, []int{200, 404, 403, 401, 500, 404, 400}, codes(on.Responses().For(MethodGet)))
	assert.Equal(t, []int{201, 404, 403, 401, 500}, codes(on.Responses().For(MethodPost)))
}

func TestAssemble_SecurityNone(t *testing.T) {
	t.Parallel()

	tree := baseTree()
	tree.Global.Authorization.Type = "None"
	descriptors, _, err := Assemble(tree)
	require.NoError(t, err)
	assert.Nil(t, descriptors[0].Scheme())
	assert.Nil(t, descriptors[0].Security())
	assert.Nil(t, descriptors[0].Manifest().Security)
}

func TestAssemble_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(*config.Tree)
		group string
		field string
	}{
		{
			name: "reserved group name",
			edit: func(tr *config.Tree) {
				tr.Groups = []config.Group{{Name: "a"}, {Name: DefaultKey}}
			},
			group: DefaultKey,
			field: "docket.default",
		},
		{
			name: "duplicate group",
			edit: func(tr *config.Tree) {
				tr.Groups = []config.Group{{Name: "a"}, {Name: "a"}}
			},
			group: "a",
			field: "docket",
		},
		{
			name: "malformed group glob",
			edit: func(tr *config.Tree) {
				tr.Groups = []config.Group{
					{Name: "ok"},
					{Name: "bad", GroupConfig: config.GroupConfig{Selection: &config.SelectionRule{ExcludePaths: []string{"/x/{id"}}}},
				}
			},
			group: "bad",
			field: "docket.bad.docket-select.exclude-path[0]",
		},
		{
			name: "malformed ungrouped glob",
			edit: func(tr *config.Tree) {
				tr.Global.Selection.BasePaths = []string{"/x/{id"}
			},
			field: "docket-select.base-path[0]",
		},
		{
			name: "unknown response key",
			edit: func(tr *config.Tree) {
				tr.Global.Responses = config.ResponseCatalog{"fetch": {{Code: 200}}}
			},
			field: "global-response-message.fetch",
		},
		{
			name: "bad auth regex",
			edit: func(tr *config.Tree) {
				tr.Global.Authorization.AuthRegex = "[unterminated"
			},
			field: "authorization.auth-regex",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := baseTree()
			tt.edit(tree)
			descriptors, reg, err := Assemble(tree)
			require.Error(t, err)
			assert.Nil(t, descriptors)
			assert.Nil(t, reg)
			assert.True(t, errors.Is(err, ErrConfiguration))
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.group, ce.Group)
			assert.Equal(t, tt.field, ce.Field)
		})
	}

	_, _, err := Assemble(nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAssemble_DescriptorsAreImmutable(t *testing.T) {
	t.Parallel()

	tree := baseTree()
	tree.Global.IgnoredParameterTypes = []string{"a"}
	descriptors, reg, err := Assemble(tree)
	require.NoError(t, err)
	d := descriptors[0]

	params := d.Parameters()
	params[0].Name = "mutated"
	ignored := d.IgnoredParameterTypes()
	ignored[0] = "mutated"
	scheme := d.Scheme()
	scheme.Name = "mutated"
	list := reg.Descriptors()
	list[0] = nil

	assert.Equal(t, "X-Trace", d.Parameters()[0].Name)
	assert.Equal(t, []string{"a"}, d.IgnoredParameterTypes())
	assert.Equal(t, "Authorization", d.Scheme().Name)
	assert.NotNil(t, reg.Descriptors()[0])

	tree.Global.Parameters[0].Name = "changed-after"
	assert.Equal(t, "X-Trace", d.Parameters()[0].Name)
}

func TestRegistry_UIIsCopied(t *testing.T) {
	t.Parallel()

	tree := baseTree()
	deep, depth := true, 2
	tree.Global.UI.DeepLinking = &deep
	tree.Global.UI.DefaultModelsExpandDepth = &depth
	_, reg, err := Assemble(tree)
	require.NoError(t, err)

	ui := reg.UI()
	*ui.DeepLinking = false
	*ui.DefaultModelsExpandDepth = -1
	deep, depth = false, 9

	again := reg.UI()
	require.NotNil(t, again.DeepLinking)
	assert.True(t, *again.DeepLinking)
	assert.Equal(t, 2, *again.DefaultModelsExpandDepth)
	assert.Nil(t, again.ShowExtensions)
}

func TestAssemble_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	tree := baseTree()
	tree.Groups = []config.Group{{Name: "a"}, {Name: "b"}}
	_, reg, err := Assemble(tree)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range reg.Names() {
				d, ok := reg.Get(name)
				if !ok {
					t.Errorf("missing %s", name)
					return
				}
				_ = d.Includes(Endpoint{Path: "/x"})
				_ = d.Responses().For(MethodGet)
			}
		}()
	}
	wg.Wait()
}
