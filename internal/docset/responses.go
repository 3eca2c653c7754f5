package docset

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/docsets/internal/config"
)

// Method is an HTTP method a response catalog can be keyed by.
type Method string

const (
	MethodPost    Method = http.MethodPost
	MethodGet     Method = http.MethodGet
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
)

// AllMethodsKey is the catalog key whose entries apply to every method.
const AllMethodsKey = "all"

var methods = []Method{MethodPost, MethodGet, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions, MethodTrace}

// Methods returns every method in catalog order.
func Methods() []Method { return slices.Clone(methods) }

// ParseMethod maps a case-insensitive method name to a Method.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(name)))
	if slices.Contains(methods, m) {
		return m, nil
	}
	return "", fmt.Errorf("unknown method %q", name)
}

func (m Method) String() string { return string(m) }

// ResponseTable is the per-method response catalog of a descriptor plus the
// entries that were declared for every method.
type ResponseTable struct {
	all      []config.ResponseEntry
	byMethod map[Method][]config.ResponseEntry
}

// For returns a copy of the entries for m in union order.
func (t ResponseTable) For(m Method) []config.ResponseEntry {
	return slices.Clone(t.byMethod[m])
}

// All returns a copy of the entries declared under the "all" key.
func (t ResponseTable) All() []config.ResponseEntry { return slices.Clone(t.all) }

// Map returns a copy of the table keyed by method.
func (t ResponseTable) Map() map[Method][]config.ResponseEntry {
	out := make(map[Method][]config.ResponseEntry, len(t.byMethod))
	for m, entries := range t.byMethod {
		out[m] = slices.Clone(entries)
	}
	return out
}

// BuildResponses unions the catalogs for each method: the defaults (only
// when applyDefaults), then all, then perMethod. Nil lists contribute
// nothing and entries are never de-duplicated.
func BuildResponses(defaults map[Method][]config.ResponseEntry, all []config.ResponseEntry, perMethod map[Method][]config.ResponseEntry, applyDefaults bool) ResponseTable {
	t := ResponseTable{
		all:      slices.Clone(all),
		byMethod: make(map[Method][]config.ResponseEntry, len(methods)),
	}
	for _, m := range methods {
		var entries []config.ResponseEntry
		if applyDefaults {
			entries = append(entries, defaults[m]...)
		}
		entries = append(entries, all...)
		entries = append(entries, perMethod[m]...)
		t.byMethod[m] = entries
	}
	return t
}

// SplitCatalog separates the "all" entries from the per-method entries. Keys
// are case-insensitive; keys naming the same method are concatenated in
// sorted key order. Any other key is a ConfigurationError.
func SplitCatalog(catalog config.ResponseCatalog) ([]config.ResponseEntry, map[Method][]config.ResponseEntry, error) {
	keys := make([]string, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var all []config.ResponseEntry
	perMethod := make(map[Method][]config.ResponseEntry)
	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k), AllMethodsKey) {
			all = append(all, catalog[k]...)
			continue
		}
		m, err := ParseMethod(k)
		if err != nil {
			return nil, nil, &ConfigurationError{
				Field:   "global-response-message." + k,
				Message: fmt.Sprintf("unknown response method key %q", k),
				Cause:   err,
			}
		}
		perMethod[m] = append(perMethod[m], catalog[k]...)
	}
	return all, perMethod, nil
}

// DefaultResponses returns the framework's built-in response entries.
func DefaultResponses() map[Method][]config.ResponseEntry {
	denied := statuses(http.StatusForbidden, http.StatusUnauthorized)
	created := statuses(http.StatusCreated, http.StatusNotFound, http.StatusForbidden, http.StatusUnauthorized)
	noContent := statuses(http.StatusNoContent, http.StatusForbidden, http.StatusUnauthorized)
	return map[Method][]config.ResponseEntry{
		MethodGet:     statuses(http.StatusOK, http.StatusNotFound, http.StatusForbidden, http.StatusUnauthorized),
		MethodPost:    created,
		MethodPut:     slices.Clone(created),
		MethodDelete:  noContent,
		MethodPatch:   slices.Clone(noContent),
		MethodTrace:   slices.Clone(noContent),
		MethodOptions: append(statuses(http.StatusOK, http.StatusNoContent), denied...),
		MethodHead:    append(statuses(http.StatusOK, http.StatusNoContent), denied...),
	}
}

func statuses(codes ...int) []config.ResponseEntry {
	out := make([]config.ResponseEntry, 0, len(codes))
	for _, c := range codes {
		out = append(out, config.ResponseEntry{Code: c, Message: http.StatusText(c)})
	}
	return out
}
