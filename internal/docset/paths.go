package docset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchAll is the base path used when a selection rule lists none.
const MatchAll = "/**"

// PathPredicate selects endpoint paths: a path matches when it matches any
// base pattern and no exclude pattern. Patterns are ant-style: `?` one
// character, `*` within a segment, `**` any number of segments and `{name}`
// a URI variable within one segment. Brackets are literal.
type PathPredicate struct {
	base    []string
	exclude []string

	baseGlobs    []string
	excludeGlobs []string
}

// CompilePaths validates the patterns and returns the combined predicate.
// An empty base list stands for MatchAll; the inputs are not modified.
func CompilePaths(basePaths, excludePaths []string) (*PathPredicate, error) {
	base := basePaths
	if len(base) == 0 {
		base = []string{MatchAll}
	}
	p := &PathPredicate{base: slices.Clone(base), exclude: slices.Clone(excludePaths)}
	var err error
	if p.baseGlobs, err = compilePatterns(p.base, "base-path"); err != nil {
		return nil, err
	}
	if p.excludeGlobs, err = compilePatterns(p.exclude, "exclude-path"); err != nil {
		return nil, err
	}
	return p, nil
}

func compilePatterns(patterns []string, field string) ([]string, error) {
	globs := make([]string, 0, len(patterns))
	for i, pat := range patterns {
		glob, ok := antToGlob(pat)
		if !ok || !doublestar.ValidatePattern(glob) {
			return nil, &ConfigurationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("malformed path pattern %q", pat),
				Cause:   doublestar.ErrBadPattern,
			}
		}
		globs = append(globs, glob)
	}
	return globs, nil
}

// antToGlob rewrites an ant pattern in doublestar syntax. Each `{name}` or
// `{name:regex}` variable becomes `*`; the regex constraint is not checked.
// Brackets and backslashes are escaped. Unbalanced braces are rejected.
func antToGlob(pat string) (string, bool) {
	var b strings.Builder
	b.Grow(len(pat))
	for i := 0; i < len(pat); i++ {
		switch c := pat[i]; c {
		case '{':
			end, depth := -1, 0
			for j := i; j < len(pat); j++ {
				if pat[j] == '{' {
					depth++
				} else if pat[j] == '}' {
					depth--
					if depth == 0 {
						end = j
						break
					}
				}
			}
			if end < 0 || end == i+1 {
				return "", false
			}
			b.WriteByte('*')
			i = end
		case '}':
			return "", false
		case '[', ']', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

// Match reports whether path is selected.
func (p *PathPredicate) Match(path string) bool {
	return matchAny(p.baseGlobs, path) && !matchAny(p.excludeGlobs, path)
}

// Func returns Match as a plain function value.
func (p *PathPredicate) Func() func(string) bool { return p.Match }

// BasePaths returns the effective base patterns, MatchAll included when it
// was substituted.
func (p *PathPredicate) BasePaths() []string { return slices.Clone(p.base) }

func (p *PathPredicate) ExcludePaths() []string { return slices.Clone(p.exclude) }

func matchAny(globs []string, path string) bool {
	for _, glob := range globs {
		// Globs were validated at compile time.
		if ok, _ := doublestar.Match(glob, path); ok {
			return true
		}
	}
	return false
}

// PackageFilter selects endpoints by owning package. An empty base matches
// every package.
type PackageFilter struct {
	base string
}

func NewPackageFilter(base string) PackageFilter {
	return PackageFilter{base: strings.TrimSpace(base)}
}

// Match reports whether pkg lies under the base package.
func (f PackageFilter) Match(pkg string) bool { return strings.HasPrefix(pkg, f.base) }

func (f PackageFilter) Base() string { return f.base }
