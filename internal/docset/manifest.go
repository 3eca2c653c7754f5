package docset

import "github.com/mark3labs/docsets/internal/config"

// Manifest is the serializable view of a Descriptor.
type Manifest struct {
	Name                  string                            `json:"name"`
	Group                 string                            `json:"group,omitempty"`
	Host                  string                            `json:"host,omitempty"`
	Metadata              config.Metadata                   `json:"metadata"`
	BasePackage           string                            `json:"basePackage,omitempty"`
	BasePaths             []string                          `json:"basePaths"`
	ExcludePaths          []string                          `json:"excludePaths,omitempty"`
	Parameters            []config.Parameter                `json:"parameters,omitempty"`
	UseDefaultResponses   bool                              `json:"useDefaultResponses"`
	Responses             map[Method][]config.ResponseEntry `json:"responses"`
	Security              *SecurityManifest                 `json:"security,omitempty"`
	IgnoredParameterTypes []string                          `json:"ignoredParameterTypes,omitempty"`
	OpenAPI               OpenAPIFragment                   `json:"openapi"`
}

type SecurityManifest struct {
	Scheme     SecurityScheme      `json:"scheme"`
	References []SecurityReference `json:"references"`
	PathRegex  string              `json:"pathRegex"`
}

// Manifest snapshots d.
func (d *Descriptor) Manifest() Manifest {
	m := Manifest{
		Name:                  d.key,
		Group:                 d.name,
		Host:                  d.host,
		Metadata:              d.metadata,
		BasePackage:           d.pkg.Base(),
		BasePaths:             d.paths.BasePaths(),
		ExcludePaths:          d.paths.ExcludePaths(),
		Parameters:            d.Parameters(),
		UseDefaultResponses:   d.useDefaultResponses,
		Responses:             d.responses.Map(),
		IgnoredParameterTypes: d.IgnoredParameterTypes(),
		OpenAPI:               d.OpenAPI(),
	}
	if d.scheme != nil && d.security != nil {
		m.Security = &SecurityManifest{
			Scheme:     *d.scheme,
			References: d.security.References(),
			PathRegex:  d.security.PathRegex(),
		}
	}
	return m
}
