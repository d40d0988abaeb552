// Package app wires the storefront chat service: storage, the AI brain,
// the websocket hub and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/ai"
	"github.com/chevai/smartchat/internal/smartchat/catalog"
	"github.com/chevai/smartchat/internal/smartchat/chat"
	"github.com/chevai/smartchat/internal/smartchat/learning"
	"github.com/chevai/smartchat/internal/smartchat/store"
)

// Config holds application configuration.
type Config struct {
	// Addr is the TCP address the HTTP server listens on, e.g. ":8080".
	Addr string
	// DatabasePath is the sqlite file. Empty runs fully in memory: an
	// ephemeral catalog and no transcript survival across restarts.
	DatabasePath string
	// GeminiAPIKey enables the generative responder. Empty leaves the
	// service on the deterministic responder only.
	GeminiAPIKey string
	// GeminiModel overrides the default generation model.
	GeminiModel string
	// DailyQuota caps generative calls per day. Zero means the default.
	DailyQuota int
	// AdminKey authorizes staff websocket joins. Empty disables staff
	// access entirely.
	AdminKey string
	// AllowedOrigins restricts websocket origins. Empty allows all.
	AllowedOrigins []string
	// LogLevel is debug, info, warn or error. Empty means info.
	LogLevel string
}

// App is the assembled service.
type App struct {
	cfg      Config
	store    *store.Store
	router   *ai.Router
	learner  *learning.Service
	hub      *chat.Hub
	contexts *ai.ContextStore
	server   *http.Server
}

// New builds the application from config. The caller owns Stop.
func New(cfg Config) (*App, error) {
	setupLogging(cfg.LogLevel)

	a := &App{cfg: cfg}

	var gateway catalog.Gateway
	var learnStore learning.Store
	if cfg.DatabasePath != "" {
		st, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		gateway = catalog.NewSQLGateway(st.DB())
		learnStore = learning.NewSQLStore(st.DB())
	} else {
		slog.Warn("no database path configured, running in memory")
		gateway = catalog.NewMemoryGateway()
		learnStore = learning.NewMemoryStore()
	}

	a.contexts = ai.NewContextStore()
	a.learner = learning.NewService(learnStore)
	quota := ai.NewQuotaCounter(cfg.DailyQuota)

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	core := ai.NewCoreResponder(gateway, a.contexts, nil, rnd)

	var gen ai.Generator
	if cfg.GeminiAPIKey != "" {
		client, err := ai.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		gen = client
	} else {
		slog.Warn("no gemini api key configured, generative replies disabled")
		gen = unavailableGenerator{}
	}
	gemini := ai.NewGeminiResponder(gateway, a.contexts, gen, 0)

	a.router = ai.NewRouter(core, gemini, a.contexts, a.learner, quota)
	a.hub = chat.NewHub(a.router, a.transcript())

	a.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// unavailableGenerator stands in when no API key is configured; the router
// falls back to the deterministic responder on every generative route.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, string) (string, error) {
	return "", ai.ErrProviderUnavailable
}

// transcript returns the persisted transcript, or a discard shim when
// running without a database.
func (a *App) transcript() chat.Transcript {
	if a.store != nil {
		return a.store
	}
	return memoryTranscript{}
}

// memoryTranscript satisfies the hub without persistence. History comes
// back empty; fan-out still works.
type memoryTranscript struct{}

func (memoryTranscript) SaveMessage(context.Context, *store.Message) error { return nil }
func (memoryTranscript) RecentMessages(context.Context, string, int) ([]store.Message, error) {
	return nil, nil
}

// Run starts the HTTP server and blocks until a signal or a server error.
func (a *App) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go a.contexts.RunSweeper(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", a.cfg.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Stop releases resources. Safe after a failed New.
func (a *App) Stop() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("store close failed", "err", err)
		}
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
