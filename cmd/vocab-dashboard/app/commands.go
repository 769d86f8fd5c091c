// Package app provides the command-line interface of the vocab-dashboard backend.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/koreanvocab/vocab-dashboard/internal/config"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
	"github.com/koreanvocab/vocab-dashboard/internal/versions"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// NewRootCmd creates the root command with every subcommand attached.
// Flags are also read from VOCAB_DASHBOARD_* environment variables.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "vocab-dashboard",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Korean vocabulary dashboard backend",
		Long: `vocab-dashboard keeps the health of the flashcard and status services and the
vocabulary coverage of the selected target list in sync, and serves them to the
dashboard views over HTTP and WebSocket.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to configuration file (YAML format, optional)")
	flags.String("flashcard-url", "", "Base URL of the flashcard service (default "+config.DefaultFlashcardURL+")")
	flags.String("status-url", "", "AnkiConnect endpoint of the status service (default "+config.DefaultStatusURL+")")
	flags.Duration("timeout", 0, "Timeout of every service request (default "+config.DefaultTimeout+")")
	bindFlags(v, flags, "config", "flashcard-url", "status-url", "timeout")

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newStatusCmd(v))
	rootCmd.AddCommand(newTargetsCmd(v))
	rootCmd.AddCommand(newCoverageCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}
}

// loadConfig reads the optional config file and lets flags and environment
// variables that were explicitly set take precedence over it.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	var opts []config.Option
	if path := v.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}

	opts = append(opts, config.WithOverride(func(c *config.Config) {
		if v.IsSet("flashcard-url") {
			c.Services.Flashcard.URL = v.GetString("flashcard-url")
		}
		if v.IsSet("status-url") {
			c.Services.Status.URL = v.GetString("status-url")
		}
		if v.IsSet("timeout") {
			c.Services.Timeout = v.GetDuration("timeout").String()
		}
		if v.IsSet("address") {
			c.Server.Address = v.GetString("address")
		}
		if v.IsSet("poll-interval") {
			c.Health.Interval = v.GetDuration("poll-interval").String()
		}
	}))

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newClient is replaced in tests
var newClient = func(cfg *config.Config) (remote.Client, error) {
	return remote.New(cfg.Services.Flashcard.URL, cfg.Services.Status.URL,
		remote.WithTimeout(cfg.GetTimeout()))
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", formatTable, "Output format (table or json)")
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", err
	}
	switch format {
	case formatTable, formatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.Get()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "vocab-dashboard %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
