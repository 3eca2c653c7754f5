package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is the encoding of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// DetectFormat derives the document format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config format %q (allowed: .yaml, .yml, .json, .toml)", filepath.Ext(path))
	}
}

// ParseFormat parses a format name such as "yaml" or "toml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config format %q (allowed: yaml, json, toml)", name)
	}
}

// Source supplies the raw bytes of one configuration document.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	Format() Format
	// Location identifies the document in error messages.
	Location() string
}

// FileSource reads a configuration document from disk.
type FileSource struct {
	path   string
	format Format
}

// NewFileSource returns a source for path, detecting the format from its
// extension. Environment variables in path are expanded.
func NewFileSource(path string) (*FileSource, error) {
	path = os.ExpandEnv(strings.TrimSpace(path))
	if path == "" {
		return nil, &Error{Code: InputError, Message: "config: path is empty"}
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, &Error{Code: InputError, Message: fmt.Sprintf("config: %v", err), Location: path, Cause: err}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: path, Cause: err}
	}
	return &FileSource{path: abs, format: format}, nil
}

func (f *FileSource) Read(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &Error{Code: InputError, Message: fmt.Sprintf("read file %s: %v", f.path, err), Location: f.path, Cause: err}
	}
	return data, nil
}

func (f *FileSource) Format() Format   { return f.format }
func (f *FileSource) Location() string { return f.path }

// Path returns the absolute path of the document.
func (f *FileSource) Path() string { return f.path }

// BytesSource serves an in-memory document.
type BytesSource struct {
	data   []byte
	format Format
}

func NewBytesSource(data []byte, format Format) *BytesSource {
	return &BytesSource{data: data, format: format}
}

func (b *BytesSource) Read(context.Context) ([]byte, error) { return b.data, nil }
func (b *BytesSource) Format() Format                       { return b.format }
func (b *BytesSource) Location() string                     { return "<bytes>" }
