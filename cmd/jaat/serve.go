package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/config"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/export"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/server"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/translate"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		logger := cfg.Log.Logger(os.Stderr, "jaat")
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.Personas.Dir != "" && cfg.Personas.Watch {
		if err := rt.library.Watch(ctx, cfg.Personas.Dir); err != nil {
			return fmt.Errorf("watching %s: %w", cfg.Personas.Dir, err)
		}
		logger.Info("watching persona definitions", slog.String("dir", cfg.Personas.Dir))
	}

	opts := server.Options{
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		SessionTTL:      cfg.Server.SessionTTL,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Stagger:         cfg.Notifier.Stagger,
		DurationMS:      cfg.Notifier.DurationMS,
		Export:          exportConfig(cfg.Export),
		Uploads:         rt.uploads,
		Logger:          logger,
	}
	if rt.generator != nil {
		opts.Translator = translate.GeneratorSender{Generator: rt.generator}
	}

	if cfg.Notifier.PushSubject != "" {
		push, err := notifier.NewWebPush(notifier.WebPushConfig{
			VAPIDPublic:  cfg.Notifier.VAPIDPublic,
			VAPIDPrivate: cfg.Notifier.VAPIDPrivate,
			Subject:      cfg.Notifier.PushSubject,
		})
		if err != nil {
			return fmt.Errorf("web push: %w", err)
		}
		if cfg.Notifier.VAPIDPublic == "" {
			logger.Warn("generated VAPID keys; set JAAT_VAPID_PUBLIC_KEY and JAAT_VAPID_PRIVATE_KEY to keep subscriptions across restarts",
				slog.String("public_key", push.VAPIDPublicKey()))
		}
		opts.Push = push
	}
	if cfg.Notifier.NATSURL != "" {
		bus, closeBus, err := notifier.ConnectBus(cfg.Notifier.NATSURL, cfg.Notifier.NATSSubject)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer closeBus()
		opts.Bus = bus
	}

	srv := server.New(rt.registry, rt.library, rt.kv, opts)

	logger.Info("starting",
		slog.String("addr", cfg.Server.Addr),
		slog.String("store", cfg.Store.Backend),
		slog.Int("personas", rt.registry.Len()),
		slog.Bool("llm", rt.generator != nil),
		slog.Bool("push", opts.Push != nil),
		slog.Bool("bus", opts.Bus != nil),
	)
	return srv.Run(ctx, cfg.Server.Addr)
}

// exportConfig layers the configured export settings over the defaults.
func exportConfig(c config.ExportConfig) export.Config {
	out := export.DefaultConfig()
	if c.Theme != "" {
		out.Theme = c.Theme
	}
	if c.DefaultFileName != "" {
		out.DefaultFileName = c.DefaultFileName
	}
	out.Watermark = c.Watermark
	out.Location = c.Location()
	return out
}
