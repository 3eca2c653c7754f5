package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Namespace is the root key documents are read from. A document without it
// is read as the namespace content directly.
const Namespace = "swagger"

// DefaultEnvPrefix prefixes the environment overlay variables.
const DefaultEnvPrefix = "SWAGGER_"

// Settings configures Load.
type Settings struct {
	// EnvPrefix enables the environment overlay when non-empty.
	EnvPrefix string
	LookupEnv func(key string) (string, bool)
}

// DefaultSettings returns settings with the environment overlay disabled.
func DefaultSettings() Settings {
	return Settings{LookupEnv: os.LookupEnv}
}

// Option mutates Settings.
type Option func(*Settings)

// WithEnv enables the environment overlay using prefix (DefaultEnvPrefix when empty).
func WithEnv(prefix string) Option {
	return func(s *Settings) {
		if strings.TrimSpace(prefix) == "" {
			prefix = DefaultEnvPrefix
		}
		s.EnvPrefix = prefix
	}
}

// WithLookupEnv replaces os.LookupEnv for the overlay.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(s *Settings) { s.LookupEnv = fn }
}

// Load reads src and decodes it into a Tree with defaults applied. Group
// order follows the document. Duplicate group names and groups named
// DefaultGroupKey are rejected.
func Load(ctx context.Context, src Source, opts ...Option) (*Tree, error) {
	if src == nil {
		return nil, &Error{Code: InputError, Message: "config: nil source"}
	}
	data, err := src.Read(ctx)
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, &Error{Code: InputError, Message: fmt.Sprintf("read %s: %v", src.Location(), err), Location: src.Location(), Cause: err}
	}
	return Decode(data, src.Format(), src.Location(), opts...)
}

// Decode parses one document. location is only used in error messages.
func Decode(data []byte, format Format, location string, opts ...Option) (*Tree, error) {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	root, order, err := decodeRaw(data, format)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Location = location
			return nil, e
		}
		return nil, &Error{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", location, err), Location: location, Cause: err}
	}

	ns, prefix := namespace(root)
	if settings.EnvPrefix != "" {
		if err := applyEnv(ns, settings); err != nil {
			err.Location = location
			return nil, err
		}
	}

	doc := document{Global: Defaults().Global}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		MatchName:        func(mapKey, fieldName string) bool { return normalizeKey(mapKey) == normalizeKey(fieldName) },
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, &Error{Code: DecodeError, Message: fmt.Sprintf("decode %s: %v", location, err), Location: location, Cause: err}
	}
	if err := dec.Decode(ns); err != nil {
		return nil, &Error{Code: DecodeError, Message: fmt.Sprintf("decode %s: %v", location, err), Location: location, Cause: err}
	}

	tree := &Tree{Enabled: true, Global: doc.Global}
	if doc.Enabled != nil {
		tree.Enabled = *doc.Enabled
	}
	tree.Groups = orderGroups(doc.Docket, order)

	if err := check(tree, prefix); err != nil {
		err.Location = location
		return nil, err
	}
	return tree, nil
}

type document struct {
	Enabled *bool                  `mapstructure:"enabled"`
	Global  `mapstructure:",squash"`
	Docket  map[string]GroupConfig `mapstructure:"docket"`
}

func decodeRaw(data []byte, format Format) (map[string]any, []string, error) {
	root := map[string]any{}
	switch format {
	case FormatYAML, FormatJSON:
		// JSON is read through the YAML decoder so key order is kept in both.
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, nil, err
		}
		order, err := yamlGroupOrder(&node)
		if err != nil {
			return nil, nil, err
		}
		if node.Kind != 0 {
			if err := node.Decode(&root); err != nil {
				return nil, nil, err
			}
		}
		if root == nil {
			root = map[string]any{}
		}
		return root, order, nil
	case FormatTOML:
		md, err := toml.Decode(string(data), &root)
		if err != nil {
			return nil, nil, err
		}
		return root, tomlGroupOrder(md), nil
	default:
		return nil, nil, &Error{Code: InputError, Message: fmt.Sprintf("config: unsupported format %q", format)}
	}
}

func namespace(root map[string]any) (map[string]any, string) {
	for k, v := range root {
		if normalizeKey(k) != Namespace {
			continue
		}
		switch m := v.(type) {
		case map[string]any:
			return m, k + "."
		case nil:
			// "swagger:" with nothing (or only comments) under it.
			return map[string]any{}, k + "."
		}
	}
	return root, ""
}

func yamlGroupOrder(doc *yaml.Node) ([]string, error) {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	prefix := ""
	if ns := mappingValue(root, Namespace); ns != nil && ns.Kind == yaml.MappingNode {
		root = ns
		prefix = Namespace + "."
	}
	docket := mappingValue(root, "docket")
	if docket == nil || docket.Kind != yaml.MappingNode {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(docket.Content)/2)
	order := make([]string, 0, len(docket.Content)/2)
	for i := 0; i+1 < len(docket.Content); i += 2 {
		name := docket.Content[i].Value
		if _, dup := seen[name]; dup {
			return nil, &Error{
				Code:    DuplicateGroup,
				Message: fmt.Sprintf("config: group %q declared more than once (line %d)", name, docket.Content[i].Line),
				Field:   prefix + "docket." + name,
			}
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}
	return order, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if normalizeKey(n.Content[i].Value) == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func tomlGroupOrder(md toml.MetaData) []string {
	var order []string
	seen := map[string]struct{}{}
	for _, key := range md.Keys() {
		k := []string(key)
		i := 0
		if len(k) > 0 && normalizeKey(k[0]) == Namespace {
			i = 1
		}
		if len(k) < i+2 || normalizeKey(k[i]) != "docket" {
			continue
		}
		name := k[i+1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}
	return order
}

// orderGroups lays groups out in document order. Names the order walk did
// not see are appended sorted so the result stays deterministic.
func orderGroups(groups map[string]GroupConfig, order []string) []Group {
	if len(groups) == 0 {
		return nil
	}
	out := make([]Group, 0, len(groups))
	placed := make(map[string]struct{}, len(groups))
	for _, name := range order {
		gc, ok := groups[name]
		if !ok {
			continue
		}
		out = append(out, Group{Name: name, GroupConfig: gc})
		placed[name] = struct{}{}
	}
	var rest []string
	for name := range groups {
		if _, ok := placed[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, Group{Name: name, GroupConfig: groups[name]})
	}
	return out
}

func check(t *Tree, prefix string) *Error {
	if err := checkParameters(t.Global.Parameters, prefix+"global-operation-parameters"); err != nil {
		return err
	}
	for _, g := range t.Groups {
		field := prefix + "docket." + g.Name
		if strings.TrimSpace(g.Name) == "" {
			return &Error{Code: MissingField, Message: "config: group name is empty", Field: prefix + "docket"}
		}
		if g.Name == DefaultGroupKey {
			return &Error{
				Code:    ReservedGroupName,
				Message: fmt.Sprintf("config: group name %q is reserved for the ungrouped descriptor", DefaultGroupKey),
				Field:   field,
			}
		}
		if err := checkParameters(g.Parameters, field+".global-operation-parameters"); err != nil {
			return err
		}
	}
	return nil
}

func checkParameters(params []Parameter, field string) *Error {
	for i, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return &Error{
				Code:    MissingField,
				Message: fmt.Sprintf("config: %s[%d]: parameter name is required", field, i),
				Field:   fmt.Sprintf("%s[%d].name", field, i),
			}
		}
	}
	return nil
}

type envKind int

const (
	envString envKind = iota
	envBool
)

var envBindings = []struct {
	suffix string
	path   []string
	kind   envKind
}{
	{"ENABLED", []string{"enabled"}, envBool},
	{"HOST", []string{"host"}, envString},
	{"APPLY_DEFAULT_RESPONSE_MESSAGES", []string{"apply-default-response-messages"}, envBool},
	{"AUTHORIZATION_NAME", []string{"authorization", "name"}, envString},
	{"AUTHORIZATION_TYPE", []string{"authorization", "type"}, envString},
	{"AUTHORIZATION_KEY_NAME", []string{"authorization", "key-name"}, envString},
	{"AUTHORIZATION_AUTH_REGEX", []string{"authorization", "auth-regex"}, envString},
	{"API_INFO_TITLE", []string{"api-info", "title"}, envString},
	{"API_INFO_DESCRIPTION", []string{"api-info", "description"}, envString},
	{"API_INFO_VERSION", []string{"api-info", "version"}, envString},
}

func applyEnv(ns map[string]any, s Settings) *Error {
	lookup := s.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, b := range envBindings {
		name := s.EnvPrefix + b.suffix
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		var value any = raw
		if b.kind == envBool {
			v, err := cast.ToBoolE(strings.TrimSpace(raw))
			if err != nil {
				return &Error{Code: DecodeError, Message: fmt.Sprintf("config: env %s: %v", name, err), Field: name, Cause: err}
			}
			value = v
		}
		setPath(ns, b.path, value)
	}
	return nil
}

// setPath assigns value at path, reusing existing keys that match loosely so
// an overlay never leaves two spellings of one key behind.
func setPath(m map[string]any, path []string, value any) {
	for i, seg := range path {
		key := seg
		for k := range m {
			if normalizeKey(k) == normalizeKey(seg) {
				key = k
				break
			}
		}
		if i == len(path)-1 {
			m[key] = value
			return
		}
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}
