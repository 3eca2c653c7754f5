package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/docsets/internal/catalog"
	"github.com/mark3labs/docsets/internal/docset"
)

const (
	matchCatalogKey   = "match.catalog"
	matchFormatKey    = "match.format"
	matchGroupKey     = "match.group"
	matchUnmatchedKey = "match.fail-unmatched"
	matchTimeoutKey   = "match.http-timeout"
)

// MatchConfig captures the inputs of the match command.
type MatchConfig struct {
	Source        SourceConfig
	Catalog       string
	Format        string
	Groups        []string
	FailUnmatched bool
	HTTPTimeout   time.Duration

	Stdout io.Writer
}

var matchRunner = runMatch

func newMatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show which endpoints of a catalog each descriptor documents",
		Long: "Load an endpoint catalog (an endpoint list, OpenAPI v3 or Swagger v2 document, " +
			"file or http/https URL) and apply every descriptor's path and package selection to it.",
		Example: strings.TrimSpace(`  docsets --config docsets.yaml match --catalog openapi.yaml
  docsets --config docsets.yaml match --catalog https://api.example.com/v2/api-docs --group public --format json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveMatchConfig(cmd, v)
			if err != nil {
				return err
			}
			return matchRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("catalog", "", "Path or URL of the endpoint catalog")
	flags.String("format", "yaml", "Output format (yaml|json)")
	flags.StringSlice("group", nil, "Only report these descriptors")
	flags.Bool("fail-unmatched", false, "Exit with an error when some endpoint is not documented by any descriptor")
	flags.Duration("http-timeout", catalog.DefaultSettings().HTTPTimeout, "Timeout for fetching a remote catalog")
	mustBindFlag(v, matchCatalogKey, flags.Lookup("catalog"))
	mustBindFlag(v, matchFormatKey, flags.Lookup("format"))
	mustBindFlag(v, matchGroupKey, flags.Lookup("group"))
	mustBindFlag(v, matchUnmatchedKey, flags.Lookup("fail-unmatched"))
	mustBindFlag(v, matchTimeoutKey, flags.Lookup("http-timeout"))

	return cmd
}

func resolveMatchConfig(cmd *cobra.Command, v *viper.Viper) (*MatchConfig, error) {
	src, err := resolveSourceConfig(v)
	if err != nil {
		return nil, err
	}
	cfg := &MatchConfig{
		Source:        src,
		Catalog:       strings.TrimSpace(v.GetString(matchCatalogKey)),
		Format:        strings.ToLower(strings.TrimSpace(v.GetString(matchFormatKey))),
		Groups:        sanitizeList(v.GetStringSlice(matchGroupKey)),
		FailUnmatched: v.GetBool(matchUnmatchedKey),
		HTTPTimeout:   v.GetDuration(matchTimeoutKey),
		Stdout:        cmd.OutOrStdout(),
	}
	if cfg.Catalog == "" {
		return nil, newUsageError("match: --catalog is required")
	}
	switch cfg.Format {
	case "", "yml":
		cfg.Format = "yaml"
	case "yaml", "json":
	default:
		return nil, newUsageError(fmt.Sprintf("match: unsupported --format %q (allowed: yaml, json)", cfg.Format))
	}
	return cfg, nil
}

func runMatch(ctx context.Context, cfg *MatchConfig) error {
	tree, err := loadTree(ctx, cfg.Source)
	if err != nil {
		return err
	}
	if !tree.Enabled {
		fmt.Fprintf(cfg.Stdout, "Documentation is disabled in %s; nothing to match.\n", cfg.Source.Location())
		return nil
	}
	descriptors, reg, err := docset.Assemble(tree)
	if err != nil {
		return describeError(err)
	}
	if len(cfg.Groups) > 0 {
		picked := make([]*docset.Descriptor, 0, len(cfg.Groups))
		for _, name := range cfg.Groups {
			d, ok := reg.Get(name)
			if !ok {
				return newUsageError(fmt.Sprintf("match: unknown group %q (available: %s)", name, strings.Join(reg.Names(), ", ")))
			}
			picked = append(picked, d)
		}
		descriptors = picked
	}

	var opts []catalog.Option
	if cfg.HTTPTimeout > 0 {
		opts = append(opts, catalog.WithHTTPTimeout(cfg.HTTPTimeout))
	}
	endpoints, err := catalog.Load(ctx, cfg.Catalog, opts...)
	if err != nil {
		return describeError(err)
	}

	res := catalog.Select(descriptors, endpoints)
	if err := writeResult(cfg.Stdout, cfg.Format, res); err != nil {
		return err
	}
	if cfg.FailUnmatched && len(res.Unmatched) > 0 {
		return fmt.Errorf("match: %d endpoint(s) not documented by any descriptor", len(res.Unmatched))
	}
	return nil
}

func writeResult(w io.Writer, format string, res catalog.Result) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}

func sanitizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
