package docset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/docsets/internal/config"
)

func TestMergeParameters(t *testing.T) {
	t.Parallel()

	global := []config.Parameter{
		{Name: "X-Trace", ParameterType: "header"},
		{Name: "X-Tenant", ParameterType: "header", Required: true},
		{Name: "lang", ParameterType: "query"},
	}

	t.Run("no group parameters copies global", func(t *testing.T) {
		t.Parallel()
		got := MergeParameters(global, nil)
		assert.Equal(t, global, got)
		got[0].Name = "changed"
		assert.Equal(t, "X-Trace", global[0].Name)
	})

	t.Run("group overrides by name", func(t *testing.T) {
		t.Parallel()
		group := []config.Parameter{
			{Name: "X-Tenant", ParameterType: "header", Required: false, Description: "optional here"},
			{Name: "page", ParameterType: "query"},
		}
		got := MergeParameters(global, group)
		require.Len(t, got, 4)
		assert.Equal(t, []string{"X-Trace", "lang", "X-Tenant", "page"}, names(got))
		assert.Equal(t, "optional here", got[2].Description)
		assert.False(t, got[2].Required)
	})

	t.Run("every group name appears once with the group value", func(t *testing.T) {
		t.Parallel()
		group := []config.Parameter{{Name: "lang", DefaultValue: "en"}, {Name: "X-Trace", DefaultValue: "on"}}
		got := MergeParameters(global, group)
		counts := map[string]int{}
		for _, p := range got {
			counts[p.Name]++
		}
		for _, g := range group {
			assert.Equal(t, 1, counts[g.Name], g.Name)
		}
		assert.Equal(t, []string{"X-Tenant", "lang", "X-Trace"}, names(got))
		assert.Equal(t, "en", got[1].DefaultValue)
	})

	t.Run("empty global", func(t *testing.T) {
		t.Parallel()
		group := []config.Parameter{{Name: "a"}}
		assert.Equal(t, group, MergeParameters(nil, group))
		assert.Empty(t, MergeParameters(nil, nil))
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		t.Parallel()
		g := append([]config.Parameter(nil), global...)
		group := []config.Parameter{{Name: "lang"}}
		_ = MergeParameters(g, group)
		assert.Equal(t, global, g)
		assert.Equal(t, []config.Parameter{{Name: "lang"}}, group)
	})
}

func names(params []config.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.Name)
	}
	return out
}
