package docset

import (
	"fmt"
	"slices"

	"github.com/mark3labs/docsets/internal/config"
)

// DefaultKey is the registry key of the descriptor built in ungrouped mode.
const DefaultKey = config.DefaultGroupKey

// Endpoint identifies one documented operation.
type Endpoint struct {
	Path    string `json:"path" yaml:"path"`
	Method  Method `json:"method" yaml:"method"`
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
}

// Descriptor is the fully resolved documentation set of one group. It is
// immutable once assembled; slice accessors return copies.
type Descriptor struct {
	name                string
	key                 string
	host                string
	metadata            config.Metadata
	paths               *PathPredicate
	pkg                 PackageFilter
	parameters          []config.Parameter
	responses           ResponseTable
	useDefaultResponses bool
	scheme              *SecurityScheme
	security            *SecurityContext
	ignored             []string
}

// GroupName is "" for the ungrouped descriptor.
func (d *Descriptor) GroupName() string { return d.name }

// Key is the registry key: the group name or DefaultKey.
func (d *Descriptor) Key() string                     { return d.key }
func (d *Descriptor) Host() string                    { return d.host }
func (d *Descriptor) Metadata() config.Metadata       { return d.metadata }
func (d *Descriptor) Paths() *PathPredicate           { return d.paths }
func (d *Descriptor) Package() PackageFilter          { return d.pkg }
func (d *Descriptor) Responses() ResponseTable        { return d.responses }
func (d *Descriptor) UseDefaultResponses() bool       { return d.useDefaultResponses }
func (d *Descriptor) Security() *SecurityContext      { return d.security }
func (d *Descriptor) Parameters() []config.Parameter  { return slices.Clone(d.parameters) }
func (d *Descriptor) IgnoredParameterTypes() []string { return slices.Clone(d.ignored) }

// Scheme returns a copy of the security scheme, nil when authorization is None.
func (d *Descriptor) Scheme() *SecurityScheme {
	if d.scheme == nil {
		return nil
	}
	s := *d.scheme
	return &s
}

// Includes reports whether ep falls under both the path predicate and the
// package filter.
func (d *Descriptor) Includes(ep Endpoint) bool {
	return d.paths.Match(ep.Path) && d.pkg.Match(ep.Package)
}

// Registry holds assembled descriptors keyed by name in assembly order. It is
// owned by the caller and read-only after Assemble returns.
type Registry struct {
	order  []*Descriptor
	byName map[string]*Descriptor
	ui     config.UIConfig
}

func newRegistry(ui config.UIConfig, size int) *Registry {
	return &Registry{
		order:  make([]*Descriptor, 0, size),
		byName: make(map[string]*Descriptor, size),
		ui:     ui.Clone(),
	}
}

func (r *Registry) add(d *Descriptor) error {
	if _, exists := r.byName[d.key]; exists {
		return &ConfigurationError{Group: d.name, Field: "docket", Message: fmt.Sprintf("descriptor %q registered twice", d.key)}
	}
	r.order = append(r.order, d)
	r.byName[d.key] = d
	return nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns the registry keys in assembly order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, d := range r.order {
		names = append(names, d.key)
	}
	return names
}

func (r *Registry) Descriptors() []*Descriptor { return slices.Clone(r.order) }

func (r *Registry) Len() int { return len(r.order) }

// UI returns a copy of the display options shared by every descriptor.
func (r *Registry) UI() config.UIConfig { return r.ui.Clone() }

// shared holds what every descriptor of one tree has in common.
type shared struct {
	host          string
	responses     ResponseTable
	applyDefaults bool
	scheme        *SecurityScheme
	security      *SecurityContext
}

// Assemble resolves tree into descriptors. Without groups it builds a single
// descriptor from the global layer under DefaultKey; otherwise one per group
// in declaration order. The first ConfigurationError aborts assembly and no
// registry is returned.
func Assemble(tree *config.Tree) ([]*Descriptor, *Registry, error) {
	if tree == nil {
		return nil, nil, &ConfigurationError{Message: "nil configuration tree"}
	}
	g := tree.Global

	all, perMethod, err := SplitCatalog(g.Responses)
	if err != nil {
		return nil, nil, err
	}
	var defaults map[Method][]config.ResponseEntry
	if g.ApplyDefaultResponses {
		defaults = DefaultResponses()
	}
	scheme, security, err := SelectSecurity(g.Authorization)
	if err != nil {
		return nil, nil, err
	}
	common := shared{
		host:          g.Host,
		responses:     BuildResponses(defaults, all, perMethod, g.ApplyDefaultResponses),
		applyDefaults: g.ApplyDefaultResponses,
		scheme:        scheme,
		security:      security,
	}

	if len(tree.Groups) == 0 {
		d, err := build(common, "", DefaultKey, g.Metadata, slices.Clone(g.Parameters), g.Selection, g.IgnoredParameterTypes)
		if err != nil {
			return nil, nil, inGroup(err, "", "docket-select")
		}
		reg := newRegistry(g.UI, 1)
		if err := reg.add(d); err != nil {
			return nil, nil, err
		}
		return []*Descriptor{d}, reg, nil
	}

	reg := newRegistry(g.UI, len(tree.Groups))
	out := make([]*Descriptor, 0, len(tree.Groups))
	for _, grp := range tree.Groups {
		if grp.Name == DefaultKey {
			return nil, nil, &ConfigurationError{
				Group:   grp.Name,
				Field:   "docket." + grp.Name,
				Message: fmt.Sprintf("group name %q is reserved for the ungrouped descriptor", DefaultKey),
			}
		}
		var sel config.SelectionRule
		if grp.Selection != nil {
			sel = *grp.Selection
		}
		ignored := g.IgnoredParameterTypes
		if len(grp.IgnoredParameterTypes) > 0 {
			ignored = grp.IgnoredParameterTypes
		}
		d, err := build(common, grp.Name, grp.Name,
			ResolveMetadata(grp.Metadata, g.Metadata),
			MergeParameters(g.Parameters, grp.Parameters),
			sel, ignored)
		if err != nil {
			return nil, nil, inGroup(err, grp.Name, "docket."+grp.Name+".docket-select")
		}
		if err := reg.add(d); err != nil {
			return nil, nil, err
		}
		out = append(out, d)
	}
	return out, reg, nil
}

func build(c shared, name, key string, meta config.Metadata, params []config.Parameter, sel config.SelectionRule, ignored []string) (*Descriptor, error) {
	paths, err := CompilePaths(sel.BasePaths, sel.ExcludePaths)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		name:                name,
		key:                 key,
		host:                c.host,
		metadata:            meta,
		paths:               paths,
		pkg:                 NewPackageFilter(sel.BasePackage),
		parameters:          params,
		responses:           c.responses,
		useDefaultResponses: c.applyDefaults,
		scheme:              c.scheme,
		security:            c.security,
		ignored:             slices.Clone(ignored),
	}, nil
}
