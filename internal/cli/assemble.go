package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mark3labs/docsets/internal/docset"
	"github.com/mark3labs/docsets/internal/emitter"
)

const (
	assembleFormatKey = "assemble.format"
	assembleOutKey    = "assemble.out"
	assembleDryRunKey = "assemble.dry-run"
	assembleForceKey  = "assemble.force"
)

// AssembleConfig captures all inputs that influence the assemble command
// after merging defaults, DOCSETS_* variables and CLI flags.
type AssembleConfig struct {
	Source  SourceConfig
	Format  string
	Out     string
	DryRun  bool
	Force   bool
	Verbose bool

	Stdout io.Writer
}

func defaultAssembleConfig() AssembleConfig {
	return AssembleConfig{Format: string(emitter.FormatYAML), Stdout: os.Stdout}
}

var assembleRunner = runAssemble

func newAssembleCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Assemble documentation descriptors and emit their manifests",
		Long: "Assemble one descriptor per configured group (or a single default descriptor) and " +
			"either summarize them or write one manifest per descriptor plus an index.",
		Example: strings.TrimSpace(`  docsets --config docsets.yaml assemble
  docsets --config docsets.yaml assemble --out ./manifests --format json --force
  docsets --consul-key config/docsets.yaml assemble --out ./manifests --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveAssembleConfig(cmd, v)
			if err != nil {
				return err
			}
			return assembleRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Manifest format (yaml|json); defaults to yaml")
	flags.String("out", "", "Write manifests to this directory (summary only when omitted)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")
	mustBindFlag(v, assembleFormatKey, flags.Lookup("format"))
	mustBindFlag(v, assembleOutKey, flags.Lookup("out"))
	mustBindFlag(v, assembleDryRunKey, flags.Lookup("dry-run"))
	mustBindFlag(v, assembleForceKey, flags.Lookup("force"))

	return cmd
}

func resolveAssembleConfig(cmd *cobra.Command, v *viper.Viper) (*AssembleConfig, error) {
	cfg := defaultAssembleConfig()
	cfg.Stdout = cmd.OutOrStdout()

	src, err := resolveSourceConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Source = src
	if f := strings.TrimSpace(v.GetString(assembleFormatKey)); f != "" {
		cfg.Format = f
	}
	cfg.Out = strings.TrimSpace(v.GetString(assembleOutKey))
	cfg.DryRun = v.GetBool(assembleDryRunKey)
	cfg.Force = v.GetBool(assembleForceKey)
	cfg.Verbose = v.GetBool(verboseKey)

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AssembleConfig) normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "yml" {
		c.Format = string(emitter.FormatYAML)
	}
}

func (c *AssembleConfig) validate() error {
	switch emitter.Format(c.Format) {
	case emitter.FormatYAML, emitter.FormatJSON:
	default:
		return newUsageError(fmt.Sprintf("assemble: unsupported --format %q (allowed: yaml, json)", c.Format))
	}
	if c.Out == "" && (c.DryRun || c.Force) {
		return newUsageError("assemble: --dry-run and --force require --out")
	}
	return nil
}

func runAssemble(ctx context.Context, cfg *AssembleConfig) error {
	// 1) Load the layered configuration (file or consul, env overlay on top)
	tree, err := loadTree(ctx, cfg.Source)
	if err != nil {
		return err
	}
	if !tree.Enabled {
		fmt.Fprintf(cfg.Stdout, "Documentation is disabled in %s; nothing assembled.\n", cfg.Source.Location())
		return nil
	}

	// 2) Assemble descriptors; all-or-nothing
	descriptors, reg, err := docset.Assemble(tree)
	if err != nil {
		return describeError(err)
	}

	// 3) Without --out just summarize
	if cfg.Out == "" {
		printSummary(cfg.Stdout, descriptors)
		return nil
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	ui := reg.UI()
	res, err := emitter.Emit(ctx, descriptors, emitter.Options{
		OutDir: cfg.Out,
		Format: emitter.Format(cfg.Format),
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
		UI:     &ui,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(cfg.Stdout, absOut, len(res.Planned), paths)
		return nil
	}
	if cfg.Verbose {
		fmt.Fprintf(cfg.Stdout, "Wrote %d files to %s\n", len(paths), absOut)
	}
	return nil
}

func printSummary(w io.Writer, descriptors []*docset.Descriptor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLE\tVERSION\tBASE PATHS\tEXCLUDED\tSECURITY")
	for _, d := range descriptors {
		meta := d.Metadata()
		security := "-"
		if s := d.Scheme(); s != nil {
			security = fmt.Sprintf("%s (%s)", s.Name, s.Kind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Key(),
			orDash(meta.Title),
			orDash(meta.Version),
			strings.Join(d.Paths().BasePaths(), ","),
			orDash(strings.Join(d.Paths().ExcludePaths(), ",")),
			security,
		)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printPlan(w io.Writer, outDir string, count int, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "not empty") || strings.Contains(lower, "collide") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}
