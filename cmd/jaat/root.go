package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/config"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/personas"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/store"
)

var (
	configPath string
	envFiles   []string
	userID     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "jaat",
	Short: "jaat serves chat personas, notifications, exports and translation",
	Long: `jaat hosts rule-based chat personas (a stand-up comic and two
companions) together with the notification, conversation export and
translation tools around them. Run "jaat serve" for the HTTP API or use
the other commands straight from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			log.SetOutput(io.Discard)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "env files to load (default .env.local,.env)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "cli", "namespace for preferences and history")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print library logs")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath, envFiles...)
}

// runtime is what every command that talks to personas needs.
type runtime struct {
	cfg       *config.Config
	kv        jaat.KVStore
	closer    io.Closer
	registry  *jaat.Registry
	library   *persona.Library
	generator jaat.Generator // nil without an OpenAI key
	uploads   persona.Store  // nil without an upload dir
}

func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	kv, closer, err := store.Open(ctx, cfg.Store.Backend, cfg.Store.DSN, store.RedisStoreConfig{
		Prefix: cfg.Store.RedisPrefix,
		TTL:    cfg.Store.RedisTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	rt := &runtime{cfg: cfg, kv: kv, closer: closer}

	modeOpts := []jaat.ModeOption{jaat.WithMiddleware(logTurns)}
	if cfg.OpenAI.Enabled() {
		rt.generator = jaat.NewOpenAIGenerator(jaat.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.Timeout,
		})
		modeOpts = append(modeOpts, jaat.WithGenerator(rt.generator))
	}
	rt.registry = jaat.NewRegistry(kv, modeOpts...)
	rt.library = persona.NewLibrary(rt.registry, nil)
	if err := personas.Register(rt.library); err != nil {
		rt.Close()
		return nil, fmt.Errorf("registering built-in personas: %w", err)
	}

	if dir := cfg.Personas.Dir; dir != "" {
		defs, err := persona.LoadDir(dir)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("loading personas from %s: %w", dir, err)
		}
		if err := rt.library.AddAll(defs); err != nil {
			rt.Close()
			return nil, err
		}
	}
	if dir := cfg.Personas.UploadDir; dir != "" {
		rt.uploads = persona.NewFileStore(dir)
		if err := rt.library.LoadStore(rt.uploads); err != nil {
			rt.Close()
			return nil, fmt.Errorf("loading uploaded personas: %w", err)
		}
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.library != nil {
		rt.library.Close()
	}
	if rt.closer != nil {
		_ = rt.closer.Close()
	}
}

// logTurns records each turn's classification and latency at debug level.
func logTurns(tc *jaat.TurnContext, next jaat.NextFunc) {
	start := time.Now()
	next()
	slog.Debug("turn",
		slog.String("persona", tc.PersonaID),
		slog.String("request_type", tc.RequestType),
		slog.String("tag", tc.Tag),
		slog.Int("reply_len", len(tc.Reply)),
		slog.Duration("took", time.Since(start)),
	)
}

// resolvePersona accepts an id or a case-insensitive name.
func (rt *runtime) resolvePersona(ref string) (string, error) {
	if _, ok := rt.registry.Config(ref); ok {
		return ref, nil
	}
	for _, id := range rt.registry.IDs() {
		cfg, _ := rt.registry.Config(id)
		if strings.EqualFold(cfg.Name, ref) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", jaat.ErrUnknownPersona, ref)
}
