package config

// Configuration tree consumed by the descriptor assembler. Field tags use the
// kebab-case keys of the `swagger` namespace; decoding matches keys loosely so
// basePath, base-path and base_path all bind to the same field.

// DefaultGroupKey is the registry key of the descriptor produced when no
// groups are declared. A group may not use it as its name.
const DefaultGroupKey = "default"

// Tree is the layered configuration: one global layer plus ordered groups.
type Tree struct {
	// Enabled mirrors swagger.enabled. Defaults to true when absent.
	Enabled bool
	Global  Global
	// Groups keeps declaration order. Empty means ungrouped mode.
	Groups []Group
}

// Group returns the named group.
func (t *Tree) Group(name string) (Group, bool) {
	for _, g := range t.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// GroupNames returns group names in declaration order.
func (t *Tree) GroupNames() []string {
	names := make([]string, 0, len(t.Groups))
	for _, g := range t.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Global holds the top-level defaults every group inherits from.
type Global struct {
	Host                  string          `mapstructure:"host"`
	Metadata              Metadata        `mapstructure:"api-info"`
	Parameters            []Parameter     `mapstructure:"global-operation-parameters"`
	Responses             ResponseCatalog `mapstructure:"global-response-message"`
	ApplyDefaultResponses bool            `mapstructure:"apply-default-response-messages"`
	Authorization         Authorization   `mapstructure:"authorization"`
	IgnoredParameterTypes []string        `mapstructure:"ignored-parameter-types"`
	Selection             SelectionRule   `mapstructure:"docket-select"`
	UI                    UIConfig        `mapstructure:"ui-config"`
}

// Group is a named GroupConfig.
type Group struct {
	Name string
	GroupConfig
}

// GroupConfig carries optional overrides scoped to one group. Zero values
// defer to Global. Response catalogs are global-only.
type GroupConfig struct {
	// Metadata is nil when the group never customized its metadata.
	Metadata              *Metadata      `mapstructure:"api-info"`
	Parameters            []Parameter    `mapstructure:"global-operation-parameters"`
	IgnoredParameterTypes []string       `mapstructure:"ignored-parameter-types"`
	Selection             *SelectionRule `mapstructure:"docket-select"`
}

// Metadata describes the documented API. Fields resolve independently.
type Metadata struct {
	Title             string  `mapstructure:"title" json:"title,omitempty"`
	Description       string  `mapstructure:"description" json:"description,omitempty"`
	Version           string  `mapstructure:"version" json:"version,omitempty"`
	License           string  `mapstructure:"license" json:"license,omitempty"`
	LicenseURL        string  `mapstructure:"license-url" json:"licenseUrl,omitempty"`
	TermsOfServiceURL string  `mapstructure:"terms-of-service-url" json:"termsOfServiceUrl,omitempty"`
	Contact           Contact `mapstructure:"contact" json:"contact"`
}

type Contact struct {
	Name  string `mapstructure:"name" json:"name,omitempty"`
	URL   string `mapstructure:"url" json:"url,omitempty"`
	Email string `mapstructure:"email" json:"email,omitempty"`
}

// Parameter is an operation parameter applied to every endpoint of a
// descriptor. Name is its identity when merging.
type Parameter struct {
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description,omitempty"`
	// ModelRef names the parameter type (string, int, a model name, ...).
	ModelRef string `mapstructure:"model-ref" json:"modelRef,omitempty"`
	// ParameterType is the location: header, query, path, body or form.
	ParameterType string `mapstructure:"parameter-type" json:"parameterType,omitempty"`
	Required      bool   `mapstructure:"required" json:"required"`
	DefaultValue  string `mapstructure:"default-value" json:"defaultValue,omitempty"`
}

// ResponseEntry documents one expected response.
type ResponseEntry struct {
	Code     int    `mapstructure:"code" json:"code"`
	Message  string `mapstructure:"message" json:"message"`
	ModelRef string `mapstructure:"model-ref" json:"modelRef,omitempty"`
}

// ResponseCatalog maps a method key (all, post, get, put, patch, delete, head,
// options, trace) to its entries. Keys are checked when the catalog is built.
type ResponseCatalog map[string][]ResponseEntry

// SelectionRule picks the endpoints that belong to a descriptor.
type SelectionRule struct {
	BasePackage  string   `mapstructure:"base-package" json:"basePackage,omitempty"`
	BasePaths    []string `mapstructure:"base-path" json:"basePath,omitempty"`
	ExcludePaths []string `mapstructure:"exclude-path" json:"excludePath,omitempty"`
}

// Authorization selects the security scheme attached to every descriptor.
type Authorization struct {
	// Name is the scheme key and the security reference.
	Name string `mapstructure:"name"`
	// Type is ApiKey, BasicAuth or None. Unknown values behave as ApiKey.
	Type      string `mapstructure:"type"`
	KeyName   string `mapstructure:"key-name"`
	AuthRegex string `mapstructure:"auth-regex"`
}

// UIConfig holds display options for the documentation UI. They are carried
// through to the registry untouched.
type UIConfig struct {
	APISorter                string `mapstructure:"api-sorter" json:"apiSorter,omitempty"`
	JSONEditor               bool   `mapstructure:"json-editor" json:"jsonEditor"`
	ShowRequestHeaders       bool   `mapstructure:"show-request-headers" json:"showRequestHeaders"`
	SubmitMethods            string `mapstructure:"submit-methods" json:"submitMethods,omitempty"`
	RequestTimeout           int64  `mapstructure:"request-timeout" json:"requestTimeout,omitempty"`
	DeepLinking              *bool  `mapstructure:"deep-linking" json:"deepLinking,omitempty"`
	DisplayOperationID       *bool  `mapstructure:"display-operation-id" json:"displayOperationId,omitempty"`
	DefaultModelsExpandDepth *int   `mapstructure:"default-models-expand-depth" json:"defaultModelsExpandDepth,omitempty"`
	DefaultModelExpandDepth  *int   `mapstructure:"default-model-expand-depth" json:"defaultModelExpandDepth,omitempty"`
	DefaultModelRendering    string `mapstructure:"default-model-rendering" json:"defaultModelRendering,omitempty"`
	DisplayRequestDuration   bool   `mapstructure:"display-request-duration" json:"displayRequestDuration"`
	DocExpansion             string `mapstructure:"doc-expansion" json:"docExpansion,omitempty"`
	// Filter is false or a filter expression string.
	Filter           any    `mapstructure:"filter" json:"filter,omitempty"`
	MaxDisplayedTags *int   `mapstructure:"max-displayed-tags" json:"maxDisplayedTags,omitempty"`
	OperationsSorter string `mapstructure:"operations-sorter" json:"operationsSorter,omitempty"`
	ShowExtensions   *bool  `mapstructure:"show-extensions" json:"showExtensions,omitempty"`
	TagsSorter       string `mapstructure:"tags-sorter" json:"tagsSorter,omitempty"`
	ValidatorURL     string `mapstructure:"validator-url" json:"validatorUrl,omitempty"`
}

// Clone returns a copy sharing no pointers with u.
func (u UIConfig) Clone() UIConfig {
	out := u
	out.DeepLinking = clonePtr(u.DeepLinking)
	out.DisplayOperationID = clonePtr(u.DisplayOperationID)
	out.DefaultModelsExpandDepth = clonePtr(u.DefaultModelsExpandDepth)
	out.DefaultModelExpandDepth = clonePtr(u.DefaultModelExpandDepth)
	out.MaxDisplayedTags = clonePtr(u.MaxDisplayedTags)
	out.ShowExtensions = clonePtr(u.ShowExtensions)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DefaultAuthorization returns the authorization used when none is configured.
func DefaultAuthorization() Authorization {
	return Authorization{
		Name:      "Authorization",
		Type:      "ApiKey",
		KeyName:   "TOKEN",
		AuthRegex: "^.*$",
	}
}

// DefaultUIConfig returns the display defaults.
func DefaultUIConfig() UIConfig {
	return UIConfig{
		APISorter:              "alpha",
		JSONEditor:             false,
		ShowRequestHeaders:     true,
		SubmitMethods:          "get,post,put,delete,patch",
		RequestTimeout:         10000,
		DisplayRequestDuration: true,
	}
}

// Defaults returns a tree with every default applied and no groups.
func Defaults() *Tree {
	return &Tree{
		Enabled: true,
		Global: Global{
			ApplyDefaultResponses: true,
			Authorization:         DefaultAuthorization(),
			UI:                    DefaultUIConfig(),
		},
	}
}
