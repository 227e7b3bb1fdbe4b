package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github/itish2003/vaultchat/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "vaultchat",
	Short:         "Ask questions about a notes vault through a local model",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.SetupLogging(cfg.LogLevel)
	},
}

func init() {
	cfg = config.Load()
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, chatCmd, vaultsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("FATAL: vaultchat")
	}
}
