package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/docsets/internal/docset"
)

// Settings configures catalog loading.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries  int
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// Load reads an endpoint catalog from a file path or an http/https URL.
//
// The input is either a list of {path, method, package} entries (bare or
// under an "endpoints" key, YAML or JSON) or an OpenAPI v3 / Swagger v2
// document. For documents, every operation becomes an endpoint whose package
// is the operation's first tag. Endpoints are returned sorted by path, then
// method.
func Load(ctx context.Context, input string, opts ...Option) ([]docset.Endpoint, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &Error{Code: InputError, Message: "catalog: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	u, uerr := url.Parse(input)
	if uerr == nil && u.Scheme != "" && u.Host != "" {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, &Error{Code: InputError, Message: fmt.Sprintf("catalog: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &Error{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return Parse(raw, input)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &Error{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &Error{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return Parse(raw, abs)
}

// Parse decodes catalog bytes. location is only used in error messages.
func Parse(data []byte, location string) ([]docset.Endpoint, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", location, err), Location: location, Cause: err}
	}

	var endpoints []docset.Endpoint
	var err error
	switch version := detectVersion(root); version {
	case 3:
		endpoints, err = fromV3(data, location)
	case 2:
		endpoints, err = fromV2(root, location)
	default:
		endpoints, err = fromList(root, location)
	}
	if err != nil {
		return nil, err
	}
	sortEndpoints(endpoints)
	return endpoints, nil
}

// detectVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else 0.
func detectVersion(root any) int {
	m, ok := root.(map[string]any)
	if !ok {
		return 0
	}
	if v, ok := m["openapi"]; ok && hasMajor(v, "3") {
		return 3
	}
	if v, ok := m["swagger"]; ok && hasMajor(v, "2") {
		return 2
	}
	return 0
}

// hasMajor accepts quoted and unquoted versions (`swagger: 2.0` decodes as a float).
func hasMajor(v any, major string) bool {
	s := strings.TrimSpace(fmt.Sprint(v))
	return s == major || strings.HasPrefix(s, major+".")
}

func fromV3(data []byte, location string) ([]docset.Endpoint, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, &Error{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", location, err), Location: location, Cause: err}
	}
	return fromDocument(doc), nil
}

func fromV2(root any, location string) ([]docset.Endpoint, error) {
	root = jsonCompatible(root)
	if m, ok := root.(map[string]any); ok {
		relaxV2(m)
	}
	// openapi2.T only carries json tags, so the YAML tree is re-encoded as JSON.
	raw, err := json.Marshal(root)
	if err != nil {
		return nil, &Error{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", location, err), Location: location, Cause: err}
	}
	var v2 openapi2.T
	if err := json.Unmarshal(raw, &v2); err != nil {
		return nil, &Error{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", location, err), Location: location, Cause: err}
	}
	doc, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, &Error{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: location, Cause: err}
	}
	return fromDocument(doc), nil
}

func fromDocument(doc *openapi3.T) []docset.Endpoint {
	var out []docset.Endpoint
	for path, item := range doc.Paths {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			m, err := docset.ParseMethod(method)
			if err != nil || op == nil {
				continue
			}
			ep := docset.Endpoint{Path: path, Method: m}
			if len(op.Tags) > 0 {
				ep.Package = op.Tags[0]
			}
			out = append(out, ep)
		}
	}
	return out
}

type listEntry struct {
	Path    string `yaml:"path"`
	Method  string `yaml:"method"`
	Package string `yaml:"package"`
}

func fromList(root any, location string) ([]docset.Endpoint, error) {
	items, pointer := root, "#"
	if m, ok := root.(map[string]any); ok {
		list, found := m["endpoints"]
		if !found {
			return nil, &Error{Code: ParseError, Message: fmt.Sprintf("catalog: %s is neither an endpoint list nor an OpenAPI/Swagger document", location), Location: location}
		}
		items, pointer = list, "#/endpoints"
	}
	if items == nil {
		return nil, nil
	}
	raw, err := yaml.Marshal(items)
	if err != nil {
		return nil, &Error{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", location, err), Location: location, Cause: err}
	}
	var entries []listEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, &Error{Code: ParseError, Message: fmt.Sprintf("catalog: %s: endpoints must be a list of {path, method, package}: %v", location, err), Location: location, Pointer: pointer, Cause: err}
	}

	out := make([]docset.Endpoint, 0, len(entries))
	for i, e := range entries {
		at := fmt.Sprintf("%s/%d", pointer, i)
		if !strings.HasPrefix(e.Path, "/") {
			return nil, &Error{Code: ParseError, Message: fmt.Sprintf("catalog: %s: endpoint %d: path %q must start with /", location, i, e.Path), Location: location, Pointer: at + "/path"}
		}
		m, err := docset.ParseMethod(e.Method)
		if err != nil {
			return nil, &Error{Code: ParseError, Message: fmt.Sprintf("catalog: %s: endpoint %d: %v", location, i, err), Location: location, Pointer: at + "/method", Cause: err}
		}
		out = append(out, docset.Endpoint{Path: e.Path, Method: m, Package: strings.TrimSpace(e.Package)})
	}
	return out, nil
}

func sortEndpoints(eps []docset.Endpoint) {
	order := docset.Methods()
	sort.SliceStable(eps, func(i, j int) bool {
		if eps[i].Path != eps[j].Path {
			return eps[i].Path < eps[j].Path
		}
		return slices.Index(order, eps[i].Method) < slices.Index(order, eps[j].Method)
	})
}

// jsonCompatible rewrites map[any]any nodes, which encoding/json rejects.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = jsonCompatible(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = jsonCompatible(val)
		}
		return t
	default:
		return v
	}
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		return body, false, err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
