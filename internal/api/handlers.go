package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dinocodesx/oalpaca/internal/chat"
)

// Workspace handlers.

func (s *Server) handleGetWorkspaces(w http.ResponseWriter, r *http.Request) {
	index, err := s.catalog.Workspaces()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, index)
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	workspace, err := s.catalog.CreateWorkspace(req.Name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, workspace)
}

func (s *Server) handleRenameWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.catalog.RenameWorkspace(mux.Vars(r)["id"], req.Name); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteWorkspace(mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetActiveWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkspaceID string `json:"workspace_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.catalog.SetActiveWorkspace(req.WorkspaceID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "active", "workspace_id": req.WorkspaceID})
}

// Folder handlers.

func (s *Server) handleGetFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.catalog.FoldersForWorkspace(mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"folders": folders})
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkspaceID string `json:"workspace_id"`
		Name        string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	folder, err := s.catalog.CreateFolder(req.WorkspaceID, req.Name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, folder)
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.catalog.RenameFolder(mux.Vars(r)["id"], req.Name); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteFolder(mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddChatToFolder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.catalog.AddChatToFolder(vars["id"], vars["chatID"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "added"})
}

func (s *Server) handleRemoveChatFromFolder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.catalog.RemoveChatFromFolder(vars["id"], vars["chatID"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "removed"})
}

// Chat handlers.

func (s *Server) handleGetAllChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.catalog.AllChats()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"chats": chats})
}

func (s *Server) handleGetWorkspaceChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.catalog.ChatsForWorkspace(mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"chats": chats})
}

func (s *Server) handleSearchChats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	chats, err := s.catalog.SearchChats(mux.Vars(r)["id"], query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"chats": chats})
}

func (s *Server) handleGetChatMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.catalog.ChatMessages(mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"messages": messages})
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.catalog.RenameChat(mux.Vars(r)["id"], req.Title); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteChat(mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "deleted"})
}

// handleSendChatMessage accepts a user message, persists it, and kicks
// off a background generation. The response carries only the chat id;
// the generated content arrives over the WebSocket event feed. When no
// workspace is given the chat lands in the active workspace.
func (s *Server) handleSendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID      string  `json:"chat_id"`
		Model       string  `json:"model"`
		Message     string  `json:"message"`
		WorkspaceID string  `json:"workspace_id"`
		FolderID    *string `json:"folder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		s.writeError(w, "Model is required", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		s.writeError(w, "Message is required", http.StatusBadRequest)
		return
	}

	workspaceID := req.WorkspaceID
	if req.ChatID == "" && workspaceID == "" {
		index, err := s.catalog.Workspaces()
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		workspaceID = index.ActiveWorkspaceID
	}

	chatID, err := s.chats.SendMessage(r.Context(), chat.SendRequest{
		ChatID:      req.ChatID,
		Model:       req.Model,
		Message:     req.Message,
		WorkspaceID: workspaceID,
		FolderID:    req.FolderID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"chat_id": chatID, "status": "streaming"})
}
