package cli

import (
	"fmt"
	"os"

	"case-reasons-training/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	port       string
	configPath string
	verbose    bool
	logger     = zap.NewNop()
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "case-reasons",
		Short:        "Case reason classification training quiz",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			built, err := buildLogger(configPath, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewHashSecretCmd())
	return cmd
}

// buildLogger honours the log section of the config when the file is
// readable. Commands report config errors themselves.
func buildLogger(path string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg, err := config.Load(path); err == nil {
		if cfg.Log.Development {
			zcfg = zap.NewDevelopmentConfig()
		}
		if cfg.Log.Level != "" {
			level, err := zapcore.ParseLevel(cfg.Log.Level)
			if err != nil {
				return nil, err
			}
			zcfg.Level = zap.NewAtomicLevelAt(level)
		}
	}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}
