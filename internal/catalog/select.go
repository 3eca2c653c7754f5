package catalog

import "github.com/mark3labs/docsets/internal/docset"

// Match is one endpoint selected by a descriptor.
type Match struct {
	docset.Endpoint `yaml:",inline"`
	// Secured is true when the descriptor's security context covers the path.
	Secured bool `json:"secured" yaml:"secured"`
}

// Selection lists the endpoints one descriptor documents.
type Selection struct {
	Descriptor string  `json:"descriptor" yaml:"descriptor"`
	Matches    []Match `json:"matches" yaml:"matches"`
}

// Result is the outcome of applying descriptors to a catalog.
type Result struct {
	Selections []Selection `json:"selections" yaml:"selections"`
	// Unmatched holds endpoints no descriptor selected.
	Unmatched []docset.Endpoint `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
}

// Select applies each descriptor's path predicate and package filter to the
// catalog. An endpoint may belong to several descriptors. Selections follow
// descriptor order and keep catalog order within each.
func Select(descriptors []*docset.Descriptor, endpoints []docset.Endpoint) Result {
	res := Result{Selections: make([]Selection, 0, len(descriptors))}
	matched := make([]bool, len(endpoints))
	for _, d := range descriptors {
		sel := Selection{Descriptor: d.Key(), Matches: []Match{}}
		sec := d.Security()
		for i, ep := range endpoints {
			if !d.Includes(ep) {
				continue
			}
			matched[i] = true
			sel.Matches = append(sel.Matches, Match{Endpoint: ep, Secured: sec != nil && sec.Applies(ep.Path)})
		}
		res.Selections = append(res.Selections, sel)
	}
	for i, ep := range endpoints {
		if !matched[i] {
			res.Unmatched = append(res.Unmatched, ep)
		}
	}
	return res
}
