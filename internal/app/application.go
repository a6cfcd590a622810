package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"parley/internal/api"
	"parley/internal/config"
	"parley/internal/engine"
	"parley/internal/history"
	"parley/internal/hub"
	"parley/internal/registry"
	"parley/internal/websocket"
	"parley/pkg/interfaces"
)

// Application wires the components together and owns their lifecycle.
// Initialization order follows the dependency chain:
// History/Registry → Engine → Hub → Handlers → HTTP.
type Application struct {
	config     *config.Config
	registry   *registry.Registry
	buffer     *history.Buffer
	engine     *engine.Engine
	chatHub    *hub.Hub
	wsHandler  *websocket.Handler
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds an application from a validated configuration.
// A nil config gets the defaults.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clock := interfaces.SystemClock{}

	reg := registry.NewRegistry()
	buffer := history.NewBuffer(cfg.Chat.HistoryCapacity)

	eng := engine.NewEngine(reg, buffer, clock, engine.Options{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		HistoryBatchSize: cfg.Chat.HistoryBatchSize,
		TypingStaleAfter: cfg.Chat.TypingStaleAfter,
		WelcomeText:      cfg.Chat.WelcomeText,
	})

	chatHub := hub.NewHub(eng, reg, clock, cfg.Chat.TypingSweepInterval)

	wsHandler := websocket.NewHandler(chatHub, cfg.WebSocket)
	apiServer := api.NewServer(chatHub)

	router := chi.NewRouter()
	router.Get("/ws", wsHandler.HandleWebSocket)
	router.Handle("/healthz", apiServer)
	router.Handle("/stats", apiServer)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		registry:   reg,
		buffer:     buffer,
		engine:     eng,
		chatHub:    chatHub,
		wsHandler:  wsHandler,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start brings the hub up before the listener so the first connection
// always finds a running event loop.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting Parley on %s", app.httpServer.Addr)

	if err := app.chatHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.chatHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Parley started")
		return nil
	case <-ctx.Done():
		_ = app.chatHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: listener first so no new
// connections arrive, then the hub.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down Parley")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.chatHub.Stop(); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}

	log.Printf("Parley shutdown complete")
	return nil
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
