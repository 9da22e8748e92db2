package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "orbe",
	Short: "Orbe search-and-chat backend",
	Long:  `Orbe classifies a question, searches news, books or the web, and streams an LLM answer grounded in the results.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd,
		askCmd,
		versionCmd,
	)
	rootCmd.PersistentFlags().StringVarP(&envFile, "env", "e", ".env", "Environment file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// boot loads configuration and builds the logger shared by every command.
func boot() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Warnings(); err != nil {
		logger.Warn("configuration incomplete", zap.Error(err))
	}
	return cfg, logger, nil
}
