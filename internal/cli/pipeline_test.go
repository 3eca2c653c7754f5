package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/docsets/internal/catalog"
	"github.com/mark3labs/docsets/internal/docset"
)

const groupedConfigYAML = "" +
	"swagger:\n" +
	"  api-info:\n" +
	"    title: Shop API\n" +
	"    version: '2.1'\n" +
	"  docket:\n" +
	"    public:\n" +
	"      api-info:\n" +
	"        title: Public\n" +
	"      docket-select:\n" +
	"        base-path: /api/**\n" +
	"        exclude-path: /api/admin/**\n" +
	"    internal:\n" +
	"      docket-select:\n" +
	"        base-path: /internal/**\n"

const catalogYAML = "" +
	"endpoints:\n" +
	"  - {path: /api/users, method: GET, package: com.shop.users}\n" +
	"  - {path: /api/admin/stats, method: GET, package: com.shop.admin}\n" +
	"  - {path: /internal/jobs, method: POST, package: com.shop.jobs}\n" +
	"  - {path: /health, method: GET}\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAssemblePipeline_Summary(t *testing.T) {
	t.Parallel()
	cfgPath := writeFile(t, t.TempDir(), "docsets.yaml", groupedConfigYAML)

	out, err := execute(t, "--config", cfgPath, "--no-env", "assemble")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "public") || !strings.Contains(lines[1], "Public") || !strings.Contains(lines[1], "/api/admin/**") {
		t.Fatalf("unexpected public row: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "internal") || !strings.Contains(lines[2], "Shop API") || !strings.Contains(lines[2], "2.1") {
		t.Fatalf("internal should inherit global metadata: %q", lines[2])
	}
	if !strings.Contains(lines[1], "Authorization (ApiKey)") {
		t.Fatalf("expected default security scheme: %q", lines[1])
	}
}

func TestAssemblePipeline_DryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "docsets.yaml", groupedConfigYAML)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "--config", cfgPath, "--no-env", "assemble", "--out", outDir, "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Planned writes to") || !strings.Contains(out, "- public.yaml") || !strings.Contains(out, "- index.yaml") {
		t.Fatalf("expected dry-run plan output, got: %s", out)
	}
	// Dry-run should not create the directory
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestAssemblePipeline_WritesJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "docsets.yaml", groupedConfigYAML)
	outDir := filepath.Join(dir, "out")

	if _, err := execute(t, "--config", cfgPath, "--no-env", "assemble", "--out", outDir, "--format", "json"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(outDir, "internal.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m docset.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.Name != "internal" || m.Metadata.Title != "Shop API" {
		t.Fatalf("unexpected manifest: %+v", m)
	}

	// A second run into the same directory needs --force.
	_, err = execute(t, "--config", cfgPath, "--no-env", "assemble", "--out", outDir, "--format", "json")
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "Hint:") {
		t.Fatalf("expected output usage error, got %v", err)
	}
	if _, err := execute(t, "--config", cfgPath, "--no-env", "assemble", "--out", outDir, "--format", "json", "--force"); err != nil {
		t.Fatalf("forced execute: %v", err)
	}
}

func TestAssemblePipeline_Disabled(t *testing.T) {
	t.Parallel()
	cfgPath := writeFile(t, t.TempDir(), "docsets.yaml", "swagger:\n  enabled: false\n")

	out, err := execute(t, "--config", cfgPath, "--no-env", "assemble")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "disabled") {
		t.Fatalf("expected disabled notice, got %q", out)
	}
}

func TestAssemblePipeline_ErrorsAreDescribed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "reserved group name",
			content: "swagger:\n  docket:\n    default: {}\n",
			want:    []string{"config:", "Location: ", "Field: swagger.docket.default"},
		},
		{
			name:    "bad glob",
			content: "swagger:\n  docket:\n    public:\n      docket-select:\n        base-path: /api/{a\n",
			want:    []string{"assemble:", "Group: public", "Field: docket.public.docket-select.base-path[0]"},
		},
		{
			name:    "unknown key",
			content: "swagger:\n  hots: typo\n",
			want:    []string{"config:", "hots"},
		},
	}
	for i, tc := range cases {
		cfgPath := writeFile(t, dir, strings.ReplaceAll(tc.name, " ", "-")+".yaml", tc.content)
		_, err := execute(t, "--config", cfgPath, "--no-env", "assemble")
		if !errors.Is(err, ErrUsage) {
			t.Fatalf("case %d (%s): expected usage error, got %v", i, tc.name, err)
		}
		for _, want := range tc.want {
			if !strings.Contains(err.Error(), want) {
				t.Fatalf("case %d (%s): %q not in %q", i, tc.name, want, err.Error())
			}
		}
	}
}

func TestAssemblePipeline_EnvOverlay(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "docsets.yaml", groupedConfigYAML)
	t.Setenv("DOCSTEST_API_INFO_VERSION", "9.9")

	out, err := execute(t, "--config", cfgPath, "--env-prefix", "DOCSTEST_", "assemble")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "9.9") {
		t.Fatalf("expected env override of api-info.version, got:\n%s", out)
	}

	out, err = execute(t, "--config", cfgPath, "--env-prefix", "DOCSTEST_", "--no-env", "assemble")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out, "9.9") {
		t.Fatalf("--no-env should ignore the overlay, got:\n%s", out)
	}
}

func TestMatchPipeline(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "docsets.yaml", groupedConfigYAML)
	catPath := writeFile(t, dir, "catalog.yaml", catalogYAML)

	out, err := execute(t, "--config", cfgPath, "--no-env", "match", "--catalog", catPath, "--format", "json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var res catalog.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if len(res.Selections) != 2 {
		t.Fatalf("expected two selections, got %+v", res.Selections)
	}
	pub := res.Selections[0]
	if pub.Descriptor != "public" || len(pub.Matches) != 1 || pub.Matches[0].Path != "/api/users" {
		t.Fatalf("unexpected public selection: %+v", pub)
	}
	if len(res.Unmatched) != 2 {
		t.Fatalf("expected admin and health unmatched, got %+v", res.Unmatched)
	}

	_, err = execute(t, "--config", cfgPath, "--no-env", "match", "--catalog", catPath, "--fail-unmatched")
	if err == nil || !strings.Contains(err.Error(), "not documented") {
		t.Fatalf("expected fail-unmatched error, got %v", err)
	}

	out, err = execute(t, "--config", cfgPath, "--no-env", "match", "--catalog", catPath, "--group", "internal")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "descriptor: internal") || strings.Contains(out, "descriptor: public") {
		t.Fatalf("expected only the internal selection, got:\n%s", out)
	}

	_, err = execute(t, "--config", cfgPath, "--no-env", "match", "--catalog", catPath, "--group", "nope")
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "available: public, internal") {
		t.Fatalf("expected unknown group usage error, got %v", err)
	}
}

func TestMatchPipeline_CatalogError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "docsets.yaml", groupedConfigYAML)

	_, err := execute(t, "--config", cfgPath, "--no-env", "match", "--catalog", filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "catalog:") || !strings.Contains(err.Error(), "Location:") {
		t.Fatalf("expected catalog usage error, got %v", err)
	}
}
