package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWorkspacesFirstRun(t *testing.T) {
	store := NewStore(t.TempDir())

	index, err := store.LoadWorkspaces()
	if err != nil {
		t.Fatalf("LoadWorkspaces failed: %v", err)
	}

	if len(index.Workspaces) != 1 {
		t.Fatalf("expected 1 default workspace, got %d", len(index.Workspaces))
	}
	ws := index.Workspaces[0]
	if ws.Name != DefaultWorkspaceName {
		t.Errorf("expected default workspace name %q, got %q", DefaultWorkspaceName, ws.Name)
	}
	if ws.ID == "" {
		t.Error("default workspace has no id")
	}
	if index.ActiveWorkspaceID != ws.ID {
		t.Errorf("active workspace should be the default workspace, got %q", index.ActiveWorkspaceID)
	}

	// The synthesized index must be persisted so a second load sees
	// the same workspace id.
	again, err := store.LoadWorkspaces()
	if err != nil {
		t.Fatalf("second LoadWorkspaces failed: %v", err)
	}
	if again.Workspaces[0].ID != ws.ID {
		t.Errorf("default workspace id changed between loads: %q vs %q", ws.ID, again.Workspaces[0].ID)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	t.Run("folders", func(t *testing.T) {
		index, err := store.LoadFolders()
		if err != nil {
			t.Fatalf("LoadFolders failed: %v", err)
		}
		if len(index.Folders) != 0 {
			t.Fatalf("expected empty folders index, got %d entries", len(index.Folders))
		}

		index.Folders = append(index.Folders, FolderMeta{
			ID:          "f1",
			Name:        "Research",
			WorkspaceID: "w1",
			ChatIDs:     []string{"c1"},
		})
		if err := store.SaveFolders(index); err != nil {
			t.Fatalf("SaveFolders failed: %v", err)
		}

		loaded, err := store.LoadFolders()
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if len(loaded.Folders) != 1 || loaded.Folders[0].Name != "Research" {
			t.Errorf("folders did not round-trip: %+v", loaded.Folders)
		}
		if len(loaded.Folders[0].ChatIDs) != 1 || loaded.Folders[0].ChatIDs[0] != "c1" {
			t.Errorf("chat ids did not round-trip: %+v", loaded.Folders[0].ChatIDs)
		}
	})

	t.Run("chats", func(t *testing.T) {
		index, err := store.LoadChats()
		if err != nil {
			t.Fatalf("LoadChats failed: %v", err)
		}

		folderID := "f1"
		index.Chats = append(index.Chats, ChatMeta{
			ID:           "c1",
			ChatTitle:    "Hello",
			FileLocation: "chats/c1.json",
			ModelUsed:    "llama3",
			WorkspaceID:  "w1",
			FolderID:     &folderID,
		})
		if err := store.SaveChats(index); err != nil {
			t.Fatalf("SaveChats failed: %v", err)
		}

		loaded, err := store.LoadChats()
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if len(loaded.Chats) != 1 {
			t.Fatalf("expected 1 chat, got %d", len(loaded.Chats))
		}
		if loaded.Chats[0].FolderID == nil || *loaded.Chats[0].FolderID != "f1" {
			t.Errorf("folder link did not round-trip: %v", loaded.Chats[0].FolderID)
		}
	})
}

func TestLoadChatDataAbsent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	data, err := store.LoadChatData("nonexistent")
	if err != nil {
		t.Fatalf("LoadChatData failed: %v", err)
	}
	if len(data.Messages) != 0 {
		t.Errorf("expected empty message log, got %d messages", len(data.Messages))
	}

	// Reading a missing log must not create its file.
	if _, err := os.Stat(filepath.Join(dir, "chats", "nonexistent.json")); !os.IsNotExist(err) {
		t.Error("reading an absent chat log should not create the file")
	}
}

func TestChatDataRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	data := &ChatData{Messages: []ChatMessage{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}}
	if err := store.SaveChatData("c1", data); err != nil {
		t.Fatalf("SaveChatData failed: %v", err)
	}

	loaded, err := store.LoadChatData("c1")
	if err != nil {
		t.Fatalf("LoadChatData failed: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != RoleUser || loaded.Messages[1].Content != "hello" {
		t.Errorf("messages did not round-trip: %+v", loaded.Messages)
	}
}

func TestDeleteChatDataTolerant(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.DeleteChatData("never-existed"); err != nil {
		t.Errorf("deleting an absent chat log should succeed, got %v", err)
	}

	if err := store.SaveChatData("c1", &ChatData{Messages: []ChatMessage{}}); err != nil {
		t.Fatalf("SaveChatData failed: %v", err)
	}
	if err := store.DeleteChatData("c1"); err != nil {
		t.Fatalf("DeleteChatData failed: %v", err)
	}
	if err := store.DeleteChatData("c1"); err != nil {
		t.Errorf("second delete should succeed, got %v", err)
	}
}

func TestCorruptIndexIsParseError(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if _, err := store.Paths().Root(); err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "workspaces.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := store.LoadWorkspaces()
	if err == nil {
		t.Fatal("expected error for corrupt index")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected ParseError, got %T: %v", err, err)
	}
}
