package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dinocodesx/oalpaca/internal/api"
	"github.com/dinocodesx/oalpaca/internal/catalog"
	"github.com/dinocodesx/oalpaca/internal/chat"
	"github.com/dinocodesx/oalpaca/internal/config"
	"github.com/dinocodesx/oalpaca/internal/events"
	"github.com/dinocodesx/oalpaca/internal/ollama"
	"github.com/dinocodesx/oalpaca/internal/storage"
)

// App wires the storage, catalog, chat, and API layers together.
type App struct {
	Config  *config.Config
	Store   *storage.Store
	Catalog *catalog.Catalog
	Broker  *events.Broker[any]
	Ollama  *ollama.Client
	Chats   *chat.Service
	Server  *api.Server
	Logger  *log.Logger
}

// New builds the application from configuration. The data directory
// and its initial index files are created here so every later
// operation can assume they exist.
func New(cfg *config.Config) (*App, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "oalpaca",
	})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	store := storage.NewStore(cfg.DataDir)
	if _, err := store.Paths().Root(); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	cat := catalog.New(store)
	// Loading once at startup synthesizes the default workspace and
	// empty indexes on first run.
	if _, err := cat.Workspaces(); err != nil {
		return nil, fmt.Errorf("failed to load workspaces: %w", err)
	}

	broker := events.NewBroker[any]()
	client := ollama.NewClient(cfg.OllamaURL, cfg.RequestTimeout)
	chats := chat.NewService(cat, client, broker, logger)
	server := api.NewServer(cat, chats, client, broker, logger)

	return &App{
		Config:  cfg,
		Store:   store,
		Catalog: cat,
		Broker:  broker,
		Ollama:  client,
		Chats:   chats,
		Server:  server,
		Logger:  logger,
	}, nil
}

// Run starts the API server and blocks until the context is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start(a.Config.Port)
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		return a.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the server and the event broker.
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.Server.Stop(shutdownCtx)
	a.Broker.Shutdown()
	return err
}
