package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/olle/eipmi/internal/config"
)

var (
	// cfg is the effective configuration, initialized in PersistentPreRunE.
	cfg *config.Config

	// logger is the process logger, initialized in PersistentPreRunE.
	logger *slog.Logger

	// configPath is the --config flag value.
	configPath string

	// authOverride is the --auth flag value (overrides auth.type).
	authOverride string

	// passwordOverride is the --password flag value (overrides auth.password).
	passwordOverride string
)

// rootCmd is the top-level cobra command for eipmi.
var rootCmd = &cobra.Command{
	Use:   "eipmi",
	Short: "IPMI-over-RMCP wire protocol tool",
	Long: "eipmi encodes, decodes, and exchanges RMCP frames: ASF presence\n" +
		"pings and IPMI v1.5 session messages with their authentication codes.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if authOverride != "" {
			cfg.Auth.Type = authOverride
		}
		if passwordOverride != "" {
			cfg.Auth.Password = passwordOverride
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		logger = newLogger(cfg.Log)

		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"configuration file (YAML); defaults apply when omitted")
	rootCmd.PersistentFlags().StringVar(&authOverride, "auth", "",
		"authentication type: none, md2, md5, password")
	rootCmd.PersistentFlags().StringVar(&passwordOverride, "password", "",
		"session password (max 16 bytes)")

	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(requestCmd())
	rootCmd.AddCommand(checksumCmd())
	rootCmd.AddCommand(versionCmd())
}

// newLogger builds the process logger from the log configuration.
func newLogger(lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(lc.Level)}

	var handler slog.Handler
	switch lc.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
