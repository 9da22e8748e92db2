package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/orbe-search/internal/config"
	"github.com/kitbuilder587/orbe-search/internal/files"
	"github.com/kitbuilder587/orbe-search/internal/ratelimit"
	"github.com/kitbuilder587/orbe-search/internal/server"
	"github.com/kitbuilder587/orbe-search/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the optional Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, logger, err := boot()
	if err != nil {
		return err
	}
	defer logger.Sync()

	a := buildApp(ctx, cfg, logger)
	defer a.Close()

	if dir := cfg.Prompt.PersonaDir; dir != "" {
		if err := a.prompts.LoadDir(dir); err != nil {
			return fmt.Errorf("load personas: %w", err)
		}
		if err := a.prompts.Watch(ctx, dir); err != nil {
			logger.Warn("persona watcher disabled", zap.Error(err))
		}
	}

	limiter := ratelimit.NewWithContext(ctx, ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
	defer limiter.Stop()

	srv := server.New(server.Deps{
		Pipeline:        a.pipeline,
		Limiter:         limiter,
		Metrics:         a.metrics,
		Gatherer:        a.registry,
		Logger:          logger,
		StaticDir:       cfg.Server.StaticDir,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TrustedProxies:  cfg.Server.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	g.Go(func() error {
		return srv.Run(gctx, addr)
	})

	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(telegram.BotConfig{
			Token:             cfg.Telegram.Token,
			Debug:             cfg.Telegram.Debug,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			PublicBaseURL:     cfg.Telegram.PublicBaseURL,
		}, a.pipeline, logger, a.metrics)
		if err != nil {
			return fmt.Errorf("start telegram bot: %w", err)
		}
		g.Go(func() error {
			if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	printBanner(cfg)

	if err := g.Wait(); err != nil {
		return err
	}
	color.Green("\nstopped")
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Print(color.GreenString("\nOrbe %s", version))
	fmt.Print(color.WhiteString("\n---------------------------------"))
	fmt.Print(color.GreenString("\nLLM:          %s", cfg.LLM.Provider))
	fmt.Print(color.GreenString("\nEmbeddings:   %s", cfg.LLM.EmbedProvider))
	fmt.Print(color.GreenString("\nWeb search:   %s", cfg.Search.WebProvider))
	fmt.Print(color.GreenString("\nBooks:        %s", cfg.Search.BookProvider))
	if cfg.Telegram.Token != "" {
		fmt.Print(color.GreenString("\nTelegram:     enabled"))
	} else {
		fmt.Print(color.YellowString("\nTelegram:     disabled"))
	}
	fmt.Print(color.WhiteString("\n---------------------------------"))
	fmt.Print(color.CyanString("\n%s  http://localhost:%d%s", color.YellowString("POST"), cfg.Server.Port, server.ChatPath))
	fmt.Print(color.CyanString("\n%s   http://localhost:%d%s", color.GreenString("GET"), cfg.Server.Port, files.ProxyPath))
	fmt.Print(color.CyanString("\n%s   http://localhost:%d%s\n\n", color.GreenString("GET"), cfg.Server.Port, server.MetricsPath))
}
