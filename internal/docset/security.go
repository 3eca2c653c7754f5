package docset

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/mark3labs/docsets/internal/config"
)

// SchemeKind is the kind of security scheme attached to a descriptor.
type SchemeKind string

const (
	SchemeAPIKey    SchemeKind = "ApiKey"
	SchemeBasicAuth SchemeKind = "BasicAuth"
)

const (
	authTypeBasic = "basicauth"
	authTypeNone  = "none"

	// DefaultAuthRegex applies the security context to every path.
	DefaultAuthRegex = "^.*$"

	// HeaderLocation is where ApiKey schemes carry their key.
	HeaderLocation = "header"
)

// SecurityScheme is the scheme a descriptor declares. KeyName and In are
// only set for ApiKey schemes.
type SecurityScheme struct {
	Name    string     `json:"name"`
	Kind    SchemeKind `json:"kind"`
	KeyName string     `json:"keyName,omitempty"`
	In      string     `json:"in,omitempty"`
}

type Scope struct {
	Scope       string `json:"scope"`
	Description string `json:"description"`
}

// SecurityReference binds a scheme name to the scopes it grants.
type SecurityReference struct {
	Reference string  `json:"reference"`
	Scopes    []Scope `json:"scopes"`
}

// SecurityContext applies references to the paths matching its regex.
type SecurityContext struct {
	references []SecurityReference
	expr       string
	pathRegex  *regexp.Regexp
}

// References returns a copy of the security references.
func (c *SecurityContext) References() []SecurityReference {
	out := make([]SecurityReference, len(c.references))
	for i, r := range c.references {
		out[i] = SecurityReference{Reference: r.Reference, Scopes: slices.Clone(r.Scopes)}
	}
	return out
}

func (c *SecurityContext) PathRegex() string { return c.expr }

// Applies reports whether the whole of path matches the context regex.
func (c *SecurityContext) Applies(path string) bool { return c.pathRegex.MatchString(path) }

// SelectSecurity turns the authorization block into a scheme and its
// context. Type None yields neither; BasicAuth yields a basic scheme; any
// other type, empty and unknown included, yields an ApiKey scheme read from
// the KeyName header.
func SelectSecurity(auth config.Authorization) (*SecurityScheme, *SecurityContext, error) {
	var scheme *SecurityScheme
	switch strings.ToLower(strings.TrimSpace(auth.Type)) {
	case authTypeNone:
		return nil, nil, nil
	case authTypeBasic:
		scheme = &SecurityScheme{Name: auth.Name, Kind: SchemeBasicAuth}
	default:
		scheme = &SecurityScheme{Name: auth.Name, Kind: SchemeAPIKey, KeyName: auth.KeyName, In: HeaderLocation}
	}

	expr := auth.AuthRegex
	if strings.TrimSpace(expr) == "" {
		expr = DefaultAuthRegex
	}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, nil, &ConfigurationError{
			Field:   "authorization.auth-regex",
			Message: fmt.Sprintf("invalid path regex %q", expr),
			Cause:   err,
		}
	}
	ctx := &SecurityContext{
		references: []SecurityReference{{
			Reference: auth.Name,
			Scopes:    []Scope{{Scope: "global", Description: "accessEverything"}},
		}},
		expr:      expr,
		pathRegex: re,
	}
	return scheme, ctx, nil
}
