package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	workspacesFile = "workspaces.json"
	foldersFile    = "folders.json"
	chatsIndexFile = "chats_index.json"
	chatsDirName   = "chats"
)

// Paths handles resolution of the on-disk data layout:
//
//	<root>/workspaces.json
//	<root>/folders.json
//	<root>/chats_index.json
//	<root>/chats/<chat-id>.json
type Paths struct {
	root string
}

// NewPaths creates a path manager rooted at dataDir. When dataDir is
// empty the default ~/.oalpaca/data is used, falling back to a
// relative .oalpaca/data if the home directory is not available.
func NewPaths(dataDir string) *Paths {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		dataDir = filepath.Join(homeDir, ".oalpaca", "data")
	}
	return &Paths{root: dataDir}
}

// Root returns the data directory, creating it and the chats
// subdirectory if they do not exist.
func (p *Paths) Root() (string, error) {
	if err := os.MkdirAll(p.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(p.root, chatsDirName), 0755); err != nil {
		return "", fmt.Errorf("failed to create chats directory: %w", err)
	}
	return p.root, nil
}

// WorkspacesIndexPath returns the path of workspaces.json.
func (p *Paths) WorkspacesIndexPath() (string, error) {
	root, err := p.Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, workspacesFile), nil
}

// FoldersIndexPath returns the path of folders.json.
func (p *Paths) FoldersIndexPath() (string, error) {
	root, err := p.Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, foldersFile), nil
}

// ChatsIndexPath returns the path of chats_index.json.
func (p *Paths) ChatsIndexPath() (string, error) {
	root, err := p.Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, chatsIndexFile), nil
}

// ChatDataPath returns the path of the message-log file for a chat.
func (p *Paths) ChatDataPath(chatID string) (string, error) {
	root, err := p.Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, chatsDirName, chatID+".json"), nil
}

// ChatFileLocation returns the location string recorded in the chats
// index for a chat's message-log file, relative to the data root.
func (p *Paths) ChatFileLocation(chatID string) string {
	return filepath.Join(chatsDirName, chatID+".json")
}
