package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultInitPath = "docsets.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample docsets configuration file",
		Long:  "Scaffold a commented docsets configuration file that documents the global layer and two groups.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", defaultInitPath, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultInitPath
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	if cfg.Verbose {
		fmt.Fprintf(os.Stdout, "Try: docsets --config %s assemble\n", absPath)
	}
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# docsets configuration (YAML)
# Everything lives under the swagger namespace. All fields are optional.
# SWAGGER_* environment variables override the values below
# (e.g. SWAGGER_HOST, SWAGGER_API_INFO_TITLE, SWAGGER_AUTHORIZATION_TYPE).
swagger:
  # Set to false to disable documentation entirely.
  enabled: true

  # Host shown in every descriptor.
  host: api.example.com

  # Metadata inherited by every group; groups override field by field.
  api-info:
    title: Example API
    description: Public and internal endpoints of the example service.
    version: 1.0.0
    license: Apache-2.0
    license-url: https://www.apache.org/licenses/LICENSE-2.0
    contact:
      name: API Team
      email: api@example.com

  # Security scheme attached to every descriptor: ApiKey, BasicAuth or None.
  # auth-regex must match the whole path for the scheme to apply.
  authorization:
    name: Authorization
    type: ApiKey
    key-name: TOKEN
    auth-regex: ^/api/.*$

  # Parameters added to every operation. A group parameter with the same
  # name overrides the global one; new names are appended.
  global-operation-parameters:
    - name: X-Request-Id
      description: Correlation id
      model-ref: string
      parameter-type: header
      required: false

  # Response messages per method (all, get, post, ...), appended after the
  # built-in defaults. The defaults are dropped only when
  # apply-default-response-messages is false.
  apply-default-response-messages: true
  global-response-message:
    all:
      - code: 500
        message: Unexpected server error
    get:
      - code: 404
        message: Resource not found

  # Selection used when no groups are declared.
  docket-select:
    base-path: /**

  # Groups produce one descriptor each, in declaration order.
  # A group may not be called "default".
  docket:
    public:
      api-info:
        title: Example Public API
      docket-select:
        base-path: /api/**
        exclude-path: /api/admin/**
    internal:
      api-info:
        title: Example Internal API
      ignored-parameter-types: [HttpServletRequest]
      docket-select:
        base-package: com.example.internal
        base-path: /internal/**

  # Display options passed through to the documentation UI.
  ui-config:
    api-sorter: alpha
    show-request-headers: true
    submit-methods: get,post,put,delete,patch
    request-timeout: 10000
`
