package docset

import (
	"slices"

	"github.com/mark3labs/docsets/internal/config"
)

// MergeParameters overrides global parameters by name. With no group
// parameters the result is a copy of global. Otherwise it is the global
// parameters whose names the group does not redeclare, in their original
// order, followed by every group parameter. Neither input is modified.
func MergeParameters(global, group []config.Parameter) []config.Parameter {
	if len(group) == 0 {
		return slices.Clone(global)
	}
	overridden := make(map[string]struct{}, len(group))
	for _, p := range group {
		overridden[p.Name] = struct{}{}
	}
	out := make([]config.Parameter, 0, len(global)+len(group))
	for _, p := range global {
		if _, ok := overridden[p.Name]; ok {
			continue
		}
		out = append(out, p)
	}
	return append(out, group...)
}
