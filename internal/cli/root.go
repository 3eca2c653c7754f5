package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DOCSETS"

const (
	configKey      = "config"
	consulKeyKey   = "consul-key"
	consulAddrKey  = "consul-addr"
	consulTokenKey = "consul-token"
	envOverlayKey  = "env-prefix"
	noEnvKey       = "no-env"
	logLevelKey    = "log-level"
	verboseKey     = "verbose"
)

// Execute runs the docsets CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
// Every root gets its own viper instance; flags win over DOCSETS_* variables.
// Subcommand keys are prefixed with the command name (assemble.format is
// DOCSETS_ASSEMBLE_FORMAT).
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "docsets",
		Short: "Assemble API documentation descriptors from layered configuration",
		Long: "docsets merges global and per-group documentation settings into one descriptor per " +
			"group, then emits manifests, matches endpoint catalogs, or keeps a live registry.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(flagErrorFunc)

	pf := cmd.PersistentFlags()
	pf.StringP(configKey, "c", "", "Docsets configuration file (YAML, JSON or TOML)")
	pf.String(consulKeyKey, "", "Read the configuration from this Consul KV key instead of a file")
	pf.String(consulAddrKey, "", "Consul HTTP address (defaults to CONSUL_HTTP_ADDR)")
	pf.String(consulTokenKey, "", "Consul ACL token (defaults to CONSUL_HTTP_TOKEN)")
	pf.String(envOverlayKey, "", "Environment overlay prefix for configuration values (default SWAGGER_)")
	pf.Bool(noEnvKey, false, "Ignore environment overrides of configuration values")
	pf.String(logLevelKey, "info", "Log level (trace|debug|info|warn|error|disabled)")
	pf.BoolP(verboseKey, "v", false, "Enable verbose logging output (same as --log-level=debug)")
	for _, key := range []string{configKey, consulKeyKey, consulAddrKey, consulTokenKey, envOverlayKey, noEnvKey, logLevelKey, verboseKey} {
		mustBindFlag(v, key, pf.Lookup(key))
	}

	for _, sub := range []*cobra.Command{
		newAssembleCmd(v),
		newMatchCmd(v),
		newWatchCmd(v),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagErrorFunc)
		cmd.AddCommand(sub)
	}

	return cmd
}

func flagErrorFunc(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

func mustBindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for key %s not found", key))
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
