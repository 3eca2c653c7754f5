package docset

import (
	"dario.cat/mergo"

	"github.com/mark3labs/docsets/internal/config"
)

// ResolveMetadata returns the metadata a group documents itself with. A nil
// group takes global wholesale; otherwise every field, contact fields
// included, keeps the group value when non-empty and falls back to global.
func ResolveMetadata(group *config.Metadata, global config.Metadata) config.Metadata {
	if group == nil {
		return global
	}
	resolved := *group
	// Both sides are config.Metadata values, so Merge has no error path.
	_ = mergo.Merge(&resolved, global)
	return resolved
}
