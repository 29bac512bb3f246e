package storage

import "time"

// Message roles used in chat logs.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// WorkspaceMeta is one entry in the workspaces index.
type WorkspaceMeta struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CreatedAt     string `json:"created_at"`
	LastUpdatedAt string `json:"last_updated_at"`
}

// WorkspacesIndex is the root structure of workspaces.json. Exactly
// one workspace is marked active by id.
type WorkspacesIndex struct {
	Workspaces        []WorkspaceMeta `json:"workspaces"`
	ActiveWorkspaceID string          `json:"active_workspace_id"`
}

// FolderMeta is one entry in the folders index. ChatIDs holds the
// forward half of the folder <-> chat link; every id in it must name a
// chat whose FolderID points back at this folder.
type FolderMeta struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	WorkspaceID   string   `json:"workspace_id"`
	ChatIDs       []string `json:"chat_ids"`
	Tags          []string `json:"tags"`
	CreatedAt     string   `json:"created_at"`
	LastUpdatedAt string   `json:"last_updated_at"`
}

// FoldersIndex is the root structure of folders.json.
type FoldersIndex struct {
	Folders []FolderMeta `json:"folders"`
}

// ChatMeta is one entry in the chats index. FolderID is nil for chats
// that live directly in a workspace.
type ChatMeta struct {
	ID            string  `json:"id"`
	ChatTitle     string  `json:"chat_title"`
	FileLocation  string  `json:"file_location"`
	ModelUsed     string  `json:"model_used"`
	WorkspaceID   string  `json:"workspace_id"`
	FolderID      *string `json:"folder_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
	LastUpdatedAt string  `json:"last_updated_at"`
}

// ChatsIndex is the root structure of chats_index.json.
type ChatsIndex struct {
	Chats []ChatMeta `json:"chats"`
}

// ChatMessage is a single turn in a chat's message log.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatData is the root structure of a per-chat message-log file. The
// message order is chronological and preserved across load/save.
type ChatData struct {
	Messages []ChatMessage `json:"messages"`
}

// NowISO returns the current UTC time as an RFC3339 string, the
// timestamp format used throughout the index files.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
