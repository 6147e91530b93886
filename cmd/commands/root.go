package commands

import (
	"context"
	"os"

	"flightscraper/internal/config"
	"flightscraper/internal/observability"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	configPath string
	debug      bool
	env        string
)

var rootCmd = &cobra.Command{
	Use:           "flightscraper",
	Short:         "flightscraper searches flight prices with a headless browser and saves them as JSON.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("debug") {
			loaded.Debug = debug
		}
		if cmd.Flags().Changed("env") {
			loaded.Env = env
		}
		cfg = loaded

		log.Logger = observability.NewLogger(os.Stderr, cfg.Env, cfg.Debug)
		for _, name := range cfg.Files {
			log.Debug().Str("file", name).Msg("merged config file")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "Config file, merged with its .local variant")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment name, dev switches to console logs")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
