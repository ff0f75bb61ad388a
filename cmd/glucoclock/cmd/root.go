package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"glucoclock/glucoclock"
	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/sound"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "glucoclock",
		Short: "Bedside glucose clock with night alarms",
		Long: `Polls the Dexcom Share API for the latest glucose reading, sounds an alarm
when it leaves the configured range during the alarm window, and dims the
display at night. The current state is served over HTTP and gRPC.`,
		Args: cobra.NoArgs,
		RunE: runClock,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the clock until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runClock,
	}

	testAlarmCmd = &cobra.Command{
		Use:       "test-alarm low|high",
		Short:     "Play an alarm sound once",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"low", "high"},
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			kind, err := defs.ParseAlarmKind(args[0])
			if err != nil {
				return err
			}

			player := sound.New(config.Sound, logger.Named("sound"))
			if kind == defs.LowAlarm {
				return player.PlayLow(cmd.Context())
			}
			return player.PlayHigh(cmd.Context())
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := defs.Load(configPath)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(config.Redacted())
		},
	}
)

// Execute runs the glucoclock CLI and exits with non-zero status on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", defs.DefaultConfigFile, "path to configuration file")
	rootCmd.AddCommand(runCmd, testAlarmCmd, configCmd)
}

func load() (defs.Config, *zap.Logger, error) {
	config, err := defs.Load(configPath)
	if err != nil {
		return defs.Config{}, nil, err
	}

	logger, err := defs.NewLogger(config.Logging)
	if err != nil {
		return defs.Config{}, nil, fmt.Errorf("unable to build logger: %w", err)
	}
	return config, logger, nil
}

func runClock(cmd *cobra.Command, _ []string) error {
	config, logger, err := load()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if config.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Debug("loaded config file", zap.String("path", configPath))

	s, err := glucoclock.Setup(cmd.Context(), config, logger)
	if err != nil {
		logger.Error("unable to set up", zap.Error(err))
		return err
	}
	return s.Run(cmd.Context())
}
