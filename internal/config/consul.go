package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
)

// ConsulKV is the subset of the Consul KV API used by ConsulSource.
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// ConsulSource reads a configuration document stored under one Consul key.
type ConsulSource struct {
	kv        ConsulKV
	key       string
	format    Format
	wait      time.Duration
	lastIndex uint64
}

// ConsulOption configures NewConsulSource.
type ConsulOption func(*consulSettings)

type consulSettings struct {
	address string
	token   string
	format  Format
	wait    time.Duration
	kv      ConsulKV
}

// WithConsulAddress overrides CONSUL_HTTP_ADDR.
func WithConsulAddress(addr string) ConsulOption {
	return func(s *consulSettings) { s.address = strings.TrimSpace(addr) }
}

// WithConsulToken overrides CONSUL_HTTP_TOKEN.
func WithConsulToken(token string) ConsulOption {
	return func(s *consulSettings) { s.token = strings.TrimSpace(token) }
}

// WithConsulFormat sets the document format when the key has no extension.
func WithConsulFormat(f Format) ConsulOption { return func(s *consulSettings) { s.format = f } }

// WithConsulWait turns reads after the first into blocking queries that
// return once the key's index moves past the last one seen, or after d.
func WithConsulWait(d time.Duration) ConsulOption {
	return func(s *consulSettings) { s.wait = d }
}

// WithConsulKV replaces the KV client, mainly for tests.
func WithConsulKV(kv ConsulKV) ConsulOption { return func(s *consulSettings) { s.kv = kv } }

// NewConsulSource returns a source for key. The client is configured from the
// standard CONSUL_HTTP_* environment unless overridden by options.
func NewConsulSource(key string, opts ...ConsulOption) (*ConsulSource, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, &Error{Code: InputError, Message: "config: consul key is empty"}
	}
	var s consulSettings
	for _, opt := range opts {
		opt(&s)
	}
	if s.format == "" {
		f, err := DetectFormat(key)
		if err != nil {
			// Extension-less keys default to YAML, which also reads JSON.
			f = FormatYAML
		}
		s.format = f
	}
	if s.kv == nil {
		cfg := api.DefaultConfig()
		if s.address != "" {
			cfg.Address = s.address
		}
		if s.token != "" {
			cfg.Token = s.token
		}
		client, err := api.NewClient(cfg)
		if err != nil {
			return nil, &Error{Code: NetworkError, Message: fmt.Sprintf("create consul client: %v", err), Location: key, Cause: err}
		}
		s.kv = client.KV()
	}
	return &ConsulSource{kv: s.kv, key: key, format: s.format, wait: s.wait}, nil
}

func (c *ConsulSource) Read(ctx context.Context) ([]byte, error) {
	q := &api.QueryOptions{}
	if c.wait > 0 && c.lastIndex > 0 {
		q.WaitIndex = c.lastIndex
		q.WaitTime = c.wait
	}
	pair, meta, err := c.kv.Get(c.key, q.WithContext(ctx))
	if err != nil {
		return nil, &Error{Code: NetworkError, Message: fmt.Sprintf("consul get %s: %v", c.key, err), Location: c.Location(), Cause: err}
	}
	if pair == nil {
		return nil, &Error{Code: InputError, Message: fmt.Sprintf("consul key %s not found", c.key), Location: c.Location()}
	}
	if meta != nil {
		// A smaller index means the KV store was reset; start over.
		if meta.LastIndex < c.lastIndex {
			c.lastIndex = 0
		} else {
			c.lastIndex = meta.LastIndex
		}
	}
	return pair.Value, nil
}

func (c *ConsulSource) Format() Format   { return c.format }
func (c *ConsulSource) Location() string { return "consul://" + c.key }

// LastIndex returns the Consul index observed by the latest successful Read.
// Blocking reads wait on it.
func (c *ConsulSource) LastIndex() uint64 { return c.lastIndex }
