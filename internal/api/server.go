package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dinocodesx/oalpaca/internal/catalog"
	"github.com/dinocodesx/oalpaca/internal/chat"
	"github.com/dinocodesx/oalpaca/internal/events"
	"github.com/dinocodesx/oalpaca/internal/ollama"
)

// Server is the local HTTP/WebSocket surface the desktop UI talks to.
// All catalog operations are synchronous; sending a chat message
// returns immediately and streams its progress over the WebSocket
// event feed.
type Server struct {
	catalog    *catalog.Catalog
	chats      *chat.Service
	models     *ollama.Client
	broker     *events.Broker[any]
	logger     *log.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates an API server over the assembled services.
func NewServer(cat *catalog.Catalog, chats *chat.Service, models *ollama.Client, broker *events.Broker[any], logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		catalog: cat,
		chats:   chats,
		models:  models,
		broker:  broker,
		logger:  logger.With("component", "api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The UI is local; never accept cross-origin sockets.
				return isLocalhostOrigin(r)
			},
		},
	}
}

// isLocalhostOrigin checks whether the request origin is a local one.
func isLocalhostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "http://127.0.0.1:") ||
		strings.HasPrefix(origin, "http://[::1]:")
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start(port int) error {
	router := s.setupRoutes()
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	s.logger.Info("starting API server", "addr", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Workspaces. The /active route must precede the {id} routes.
	api.HandleFunc("/workspaces/active", s.handleSetActiveWorkspace).Methods("PUT")
	api.HandleFunc("/workspaces", s.handleGetWorkspaces).Methods("GET")
	api.HandleFunc("/workspaces", s.handleCreateWorkspace).Methods("POST")
	api.HandleFunc("/workspaces/{id}", s.handleRenameWorkspace).Methods("PUT")
	api.HandleFunc("/workspaces/{id}", s.handleDeleteWorkspace).Methods("DELETE")
	api.HandleFunc("/workspaces/{id}/folders", s.handleGetFolders).Methods("GET")
	api.HandleFunc("/workspaces/{id}/chats/search", s.handleSearchChats).Methods("GET")
	api.HandleFunc("/workspaces/{id}/chats", s.handleGetWorkspaceChats).Methods("GET")

	// Folders.
	api.HandleFunc("/folders", s.handleCreateFolder).Methods("POST")
	api.HandleFunc("/folders/{id}", s.handleRenameFolder).Methods("PUT")
	api.HandleFunc("/folders/{id}", s.handleDeleteFolder).Methods("DELETE")
	api.HandleFunc("/folders/{id}/chats/{chatID}", s.handleAddChatToFolder).Methods("PUT")
	api.HandleFunc("/folders/{id}/chats/{chatID}", s.handleRemoveChatFromFolder).Methods("DELETE")

	// Chats.
	api.HandleFunc("/chats", s.handleGetAllChats).Methods("GET")
	api.HandleFunc("/chats/ws", s.handleChatEventsWebSocket)
	api.HandleFunc("/chats/messages", s.handleSendChatMessage).Methods("POST")
	api.HandleFunc("/chats/{id}/messages", s.handleGetChatMessages).Methods("GET")
	api.HandleFunc("/chats/{id}", s.handleRenameChat).Methods("PUT")
	api.HandleFunc("/chats/{id}", s.handleDeleteChat).Methods("DELETE")

	// Model lifecycle pass-throughs.
	api.HandleFunc("/models", s.handleListModels).Methods("GET")
	api.HandleFunc("/models/running", s.handleListRunningModels).Methods("GET")
	api.HandleFunc("/models/show", s.handleShowModel).Methods("POST")
	api.HandleFunc("/models/copy", s.handleCopyModel).Methods("POST")
	api.HandleFunc("/models/create", s.handleCreateModel).Methods("POST")
	api.HandleFunc("/models/pull", s.handlePullModel).Methods("POST")
	api.HandleFunc("/models/push", s.handlePushModel).Methods("POST")
	api.HandleFunc("/models/{name}", s.handleDeleteModel).Methods("DELETE")

	// Health check.
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	return router
}

// corsMiddleware adds CORS headers for local UI origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isLocalhostOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy to HTTP status codes:
// validation errors become 400, unknown ids 404, an unreachable or
// failing model backend 502, and anything else (IO, parse) 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *catalog.ValidationError
	if errors.As(err, &validationErr) {
		s.writeError(w, validationErr.Error(), http.StatusBadRequest)
		return
	}
	var notFoundErr *catalog.NotFoundError
	if errors.As(err, &notFoundErr) {
		s.writeError(w, notFoundErr.Error(), http.StatusNotFound)
		return
	}
	var upstreamErr *ollama.UpstreamError
	if errors.As(err, &upstreamErr) {
		s.writeError(w, upstreamErr.Error(), http.StatusBadGateway)
		return
	}
	s.logger.Error("internal error", "error", err)
	s.writeError(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status": "healthy",
		"ollama": s.models.BaseURL(),
	})
}
