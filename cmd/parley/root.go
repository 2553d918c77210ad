package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a voice-call dialogue orchestrator",
	Long: `Parley answers telephony gateway webhooks, keeps a bounded conversation
per call, and asks a generation backend for every reply.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "parley.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().String("backend", "", "Generation backend (anthropic, openai, fake)")
	rootCmd.PersistentFlags().String("store", "", "Session store (memory, redis)")
	rootCmd.PersistentFlags().String("languages", "", "YAML file overriding the language catalog")
}

// loadConfig applies flags on top of defaults, file and environment, then validates.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}

	override := func(flag string, dst *string) {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
	override("log-level", &cfg.LogLevel)
	override("log-format", &cfg.LogFormat)
	override("backend", &cfg.Backend.Provider)
	override("store", &cfg.Store.Driver)
	override("languages", &cfg.LanguagesFile)
	if cmd.Flags().Lookup("port") != nil {
		override("port", &cfg.Port)
	}
	if cmd.Flags().Lookup("single-language") != nil {
		override("single-language", &cfg.Gateway.SingleLanguage)
	}
	cfg.ResolveAPIKey(os.LookupEnv)

	logger := logging.New(logging.ParseLevel(cfg.LogLevel), logging.Format(cfg.LogFormat))

	warnings, err := cfg.Validate()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range warnings {
		logger.Warn(w)
	}
	return cfg, logger, nil
}
