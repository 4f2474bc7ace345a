// Package server exposes personas, notifications, chat export and the
// translation assistant over HTTP. Every caller gets a session keyed by the
// X-JAAT-User header; a session's personas, settings and saved data live in
// the key-value store under that id.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/export"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/translate"
)

// Options configures a Server. Zero values disable the optional pieces.
type Options struct {
	RateLimit  float64 // requests per second per session; 0 = unlimited
	RateBurst  int
	SessionTTL time.Duration // 0 keeps sessions forever

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Stagger    time.Duration // notifier show interval
	DurationMS int           // default auto-dismiss delay

	Export     export.Config // zero uses export.DefaultConfig
	Push       *notifier.WebPush
	Bus        *notifier.BusChannel
	Translator translate.Sender
	Uploads    persona.Store

	Logger *slog.Logger
	Now    func() time.Time
}

// Server is the HTTP front end. Create with New, serve with Run or mount
// Handler.
type Server struct {
	registry *jaat.Registry
	library  *persona.Library
	kv       jaat.KVStore
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	sessions *sessions
	upgrader websocket.Upgrader
	router   chi.Router
}

// New builds a server over a registry whose personas the library manages.
func New(registry *jaat.Registry, library *persona.Library, kv jaat.KVStore, opts Options) *Server {
	if kv == nil {
		kv = jaat.NewInMemoryKVStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Export == (export.Config{}) {
		opts.Export = export.DefaultConfig()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	srv := &Server{
		registry: registry,
		library:  library,
		kv:       kv,
		opts:     opts,
		logger:   opts.Logger,
		now:      opts.Now,
		upgrader: newUpgrader(),
	}
	srv.sessions = newSessions(srv)
	srv.router = srv.routes()
	return srv
}

// Handler returns the root handler.
func (srv *Server) Handler() http.Handler { return srv.router }

func (srv *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(srv.logger))
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/healthz", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(srv.resolveSession)

		r.Route("/personas", func(r chi.Router) {
			r.Get("/", srv.handleListPersonas)
			r.Post("/", srv.handleUploadPersona)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", srv.handleGetPersona)
				r.Get("/greeting", srv.handleGreeting)
				r.Post("/input", srv.handleInput)
				r.Delete("/history", srv.handleClearHistory)
				r.Patch("/preferences", srv.handleSavePreferences)
				r.Get("/versions", srv.handlePersonaVersions)
			})
		})

		r.Route("/notifier", func(r chi.Router) {
			r.Get("/", srv.handleNotifierState)
			r.Post("/notify", srv.handleNotify)
			r.Post("/message", srv.handleNotifyMessage)
			r.Post("/process", srv.handleNotifyProcess)
			r.Patch("/settings", srv.handleNotifierSettings)
			r.Get("/sounds", srv.handleSounds)
			r.Put("/sound", srv.handleSetSound)
			r.Post("/keywords", srv.handleAddKeyword)
			r.Delete("/keywords/{keyword}", srv.handleRemoveKeyword)
			r.Post("/read", srv.handleResetUnread)
			r.Post("/{nid}/dismiss", srv.handleDismiss)
			r.Post("/{nid}/click", srv.handleClick)
			r.Get("/panel", srv.handleNotifierPanel)
			r.Post("/panel", srv.handleNotifierPanelChange)
			r.Get("/stream", srv.handleStream)
		})

		r.Route("/push", func(r chi.Router) {
			r.Get("/vapid-public-key", srv.handleVAPIDKey)
			r.Get("/subscriptions", srv.handleListSubscriptions)
			r.Post("/subscribe", srv.handleSubscribe)
			r.Delete("/subscribe/{sid}", srv.handleUnsubscribe)
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/formats", srv.handleExportFormats)
			r.Get("/panel", srv.handleExportPanel)
			r.Post("/panel", srv.handleExportPanelChange)
			r.Get("/last", srv.handleExportLast)
			r.Post("/{format}", srv.handleExport)
		})

		r.Route("/translate", func(r chi.Router) {
			r.Get("/languages", srv.handleTranslateCatalog)
			r.Post("/", srv.handleTranslate)
			r.Post("/swap", srv.handleTranslateSwap)
			r.Get("/saved", srv.handleListSaved)
			r.Post("/saved", srv.handleSave)
			r.Post("/saved/{tid}/load", srv.handleLoadSaved)
			r.Delete("/saved/{tid}", srv.handleDeleteSaved)
			r.Delete("/saved", srv.handleClearSaved)
			r.Get("/panel", srv.handleTranslatePanel)
			r.Post("/panel", srv.handleTranslatePanelChange)
		})
	})
	return r
}

func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"personas": srv.registry.Len(),
		"sessions": srv.sessions.Len(),
	})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       srv.opts.ReadTimeout,
		WriteTimeout:      srv.opts.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.logger.Info("listening", slog.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		srv.janitor(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.opts.ShutdownTimeout)
		defer cancel()
		err := hs.Shutdown(shutdownCtx)
		srv.Close()
		srv.logger.Info("stopped")
		return err
	})
	return g.Wait()
}

// Close ends every session.
func (srv *Server) Close() {
	srv.sessions.closeAll()
}
