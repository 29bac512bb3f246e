package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// DefaultWorkspaceName is the name given to the workspace auto-created
// on first run.
const DefaultWorkspaceName = "My Workspace"

// ParseError reports a backing file that exists but does not contain
// valid JSON. IO failures are returned as plainly wrapped os errors;
// callers distinguish the two with errors.As.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Store is the durable mapping from each collection (workspaces,
// folders, chats, per-chat message logs) to its JSON file. It performs
// no locking; the catalog serializes every load-modify-save cycle.
type Store struct {
	paths *Paths
}

// NewStore creates a store over the given data directory ("" for the
// default location).
func NewStore(dataDir string) *Store {
	return &Store{paths: NewPaths(dataDir)}
}

// Paths exposes the underlying path manager.
func (s *Store) Paths() *Paths { return s.paths }

// LoadWorkspaces returns the workspaces index. On first run the index
// file is absent: a default workspace is created, marked active,
// persisted, and returned.
func (s *Store) LoadWorkspaces() (*WorkspacesIndex, error) {
	path, err := s.paths.WorkspacesIndexPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		now := NowISO()
		ws := WorkspaceMeta{
			ID:            uuid.New().String(),
			Name:          DefaultWorkspaceName,
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
		index := &WorkspacesIndex{
			Workspaces:        []WorkspaceMeta{ws},
			ActiveWorkspaceID: ws.ID,
		}
		if err := s.SaveWorkspaces(index); err != nil {
			return nil, err
		}
		return index, nil
	}
	var index WorkspacesIndex
	if err := readJSONFile(path, &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// SaveWorkspaces overwrites workspaces.json.
func (s *Store) SaveWorkspaces(index *WorkspacesIndex) error {
	path, err := s.paths.WorkspacesIndexPath()
	if err != nil {
		return err
	}
	return writeJSONFile(path, index)
}

// LoadFolders returns the folders index, creating an empty one if the
// file is absent.
func (s *Store) LoadFolders() (*FoldersIndex, error) {
	path, err := s.paths.FoldersIndexPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		index := &FoldersIndex{Folders: []FolderMeta{}}
		if err := s.SaveFolders(index); err != nil {
			return nil, err
		}
		return index, nil
	}
	var index FoldersIndex
	if err := readJSONFile(path, &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// SaveFolders overwrites folders.json.
func (s *Store) SaveFolders(index *FoldersIndex) error {
	path, err := s.paths.FoldersIndexPath()
	if err != nil {
		return err
	}
	return writeJSONFile(path, index)
}

// LoadChats returns the chats index, creating an empty one if the file
// is absent.
func (s *Store) LoadChats() (*ChatsIndex, error) {
	path, err := s.paths.ChatsIndexPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		index := &ChatsIndex{Chats: []ChatMeta{}}
		if err := s.SaveChats(index); err != nil {
			return nil, err
		}
		return index, nil
	}
	var index ChatsIndex
	if err := readJSONFile(path, &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// SaveChats overwrites chats_index.json.
func (s *Store) SaveChats(index *ChatsIndex) error {
	path, err := s.paths.ChatsIndexPath()
	if err != nil {
		return err
	}
	return writeJSONFile(path, index)
}

// LoadChatData returns a chat's message log. A brand-new chat has no
// log file until first save; absence yields an empty log, not an
// error, and nothing is written.
func (s *Store) LoadChatData(chatID string) (*ChatData, error) {
	path, err := s.paths.ChatDataPath(chatID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &ChatData{Messages: []ChatMessage{}}, nil
	}
	var data ChatData
	if err := readJSONFile(path, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SaveChatData overwrites a chat's message-log file.
func (s *Store) SaveChatData(chatID string, data *ChatData) error {
	path, err := s.paths.ChatDataPath(chatID)
	if err != nil {
		return err
	}
	return writeJSONFile(path, data)
}

// DeleteChatData removes a chat's message-log file. A file that is
// already gone is not an error.
func (s *Store) DeleteChatData(chatID string) error {
	path, err := s.paths.ChatDataPath(chatID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete chat data: %w", err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
