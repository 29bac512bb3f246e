package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dinocodesx/oalpaca/internal/app"
	"github.com/dinocodesx/oalpaca/internal/config"
)

var (
	debug     bool
	dataDir   string
	ollamaURL string
	port      int
)

var rootCmd = &cobra.Command{
	Use:   "oalpaca",
	Short: "Local chat workspace server for Ollama",
	Long: `Oalpaca is the backend for a local LLM chat organizer. It keeps
workspaces, folders, and chat histories in plain JSON files and
streams model replies from a local Ollama instance.

The server binds to localhost only and exposes a REST API plus a
WebSocket event feed for the desktop UI.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(debug)
		if err != nil {
			return err
		}
		// Flags win over the config file and environment.
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if cmd.Flags().Changed("ollama-url") {
			cfg.OllamaURL = ollamaURL
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if debug {
			cfg.Debug = true
		}

		application, err := app.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := application.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.oalpaca/data)")
	rootCmd.Flags().StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Base URL of the Ollama server")
	rootCmd.Flags().IntVar(&port, "port", 47821, "Port for the local API server")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
