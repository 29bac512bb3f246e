package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Model lifecycle handlers. These are thin pass-throughs over the
// Ollama client; request and response shapes mirror Ollama's own API.

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.models.ListModels(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"models": models})
}

func (s *Server) handleListRunningModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.models.ListRunningModels(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"models": models})
}

func (s *Server) handleShowModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	info, err := s.models.ShowModel(r.Context(), req.Model)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, info)
}

func (s *Server) handleCopyModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := s.models.CopyModel(r.Context(), req.Source, req.Destination)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, status)
}

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from"`
		Model  string `json:"model"`
		System string `json:"system"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := s.models.CreateModel(r.Context(), req.From, req.Model, req.System)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, status)
}

func (s *Server) handlePullModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := s.models.PullModel(r.Context(), req.Model)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, status)
}

func (s *Server) handlePushModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := s.models.PushModel(r.Context(), req.Model)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, status)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	status, err := s.models.DeleteModel(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, status)
}
