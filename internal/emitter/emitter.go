package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/docsets/internal/config"
	"github.com/mark3labs/docsets/internal/docset"
)

// Format selects the manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// IndexFile is the base name of the manifest index.
const IndexFile = "index"

// Options controls how manifests are written.
type Options struct {
	OutDir string // required; target directory
	Format Format // defaults to yaml
	Force  bool   // overwrite existing files
	DryRun bool   // don't write, only plan
	// Prune removes manifests listed by the previous index that are no
	// longer planned. Requires Force.
	Prune bool
	// UI is recorded in the index when set.
	UI *config.UIConfig
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result lists the planned files in write order.
type Result struct {
	Format  Format
	Planned []PlannedFile
	// Removed lists stale manifests pruned (or, on a dry run, to be pruned).
	Removed []string
}

// Index is the manifest written next to the per-descriptor files.
type Index struct {
	Descriptors []IndexEntry     `json:"descriptors"`
	UI          *config.UIConfig `json:"ui,omitempty"`
}

type IndexEntry struct {
	Name    string `json:"name"`
	Group   string `json:"group,omitempty"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version,omitempty"`
	File    string `json:"file"`
}

// Emit writes one manifest per descriptor (<name>.<ext>) plus the index.
func Emit(ctx context.Context, descriptors []*docset.Descriptor, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	format, err := resolveFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	files := map[string][]byte{}
	index := Index{Descriptors: make([]IndexEntry, 0, len(descriptors)), UI: opts.UI}
	for _, d := range descriptors {
		if d == nil {
			return nil, fmt.Errorf("emitter: nil descriptor")
		}
		base := sanitizeName(d.Key())
		if base == "" || base == IndexFile {
			return nil, fmt.Errorf("emitter: descriptor %q has no usable file name", d.Key())
		}
		rel := base + "." + string(format)
		if _, taken := files[rel]; taken {
			return nil, fmt.Errorf("emitter: descriptors collide on file %q", rel)
		}
		content, err := encode(d.Manifest(), format)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", d.Key(), err)
		}
		files[rel] = content
		meta := d.Metadata()
		index.Descriptors = append(index.Descriptors, IndexEntry{
			Name:    d.Key(),
			Group:   d.GroupName(),
			Title:   meta.Title,
			Version: meta.Version,
			File:    rel,
		})
	}
	indexContent, err := encode(index, format)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	files[IndexFile+"."+string(format)] = indexContent

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	res := &Result{Format: format, Planned: planned}
	if opts.Prune {
		if !opts.Force {
			return nil, fmt.Errorf("emitter: Prune requires Force")
		}
		res.Removed = staleFiles(opts.OutDir, format, files)
	}
	if !opts.DryRun {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
		for _, rel := range res.Removed {
			if err := os.Remove(filepath.Join(opts.OutDir, rel)); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("prune %s: %w", rel, err)
			}
		}
	}
	return res, nil
}

// staleFiles returns the manifests named by the index already in outDir that
// the new plan does not write. Entries that are not plain file names of this
// format are ignored.
func staleFiles(outDir string, format Format, planned map[string][]byte) []string {
	raw, err := os.ReadFile(filepath.Join(outDir, IndexFile+"."+string(format)))
	if err != nil {
		return nil
	}
	if format == FormatYAML {
		// Manifests carry json keys in both formats.
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return nil
		}
		if raw, err = json.Marshal(generic); err != nil {
			return nil
		}
	}
	var prev Index
	if err := json.Unmarshal(raw, &prev); err != nil {
		return nil
	}
	var stale []string
	for _, e := range prev.Descriptors {
		rel := e.File
		base, ok := strings.CutSuffix(rel, "."+string(format))
		if !ok || base == IndexFile || base == "" || sanitizeName(base) != base {
			continue
		}
		if _, keep := planned[rel]; !keep {
			stale = append(stale, rel)
		}
	}
	sort.Strings(stale)
	return stale
}

func resolveFormat(f Format) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(string(f)))) {
	case "", FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("emitter: unsupported format %q (want yaml or json)", f)
	}
}

// encode renders v through its json tags in both formats so YAML output keeps
// the same key names and order as JSON.
func encode(v any, format Format) ([]byte, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return append(raw, '\n'), nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	return yaml.Marshal(&node)
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

// sanitizeName keeps descriptor keys usable as file names.
func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "-", "/", "-", "\\", "-").Replace(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-.")
}
