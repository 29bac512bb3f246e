package catalog

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dinocodesx/oalpaca/internal/storage"
)

// titleLimit is the number of characters of the first message used as
// an auto-generated chat title before the "..." marker is appended.
const titleLimit = 50

// Catalog coordinates every mutation that touches more than one of the
// three indices so workspaces.json, folders.json, and chats_index.json
// never disagree. The index files carry no transaction support, so a
// single mutex guards each load-modify-save cycle end to end.
type Catalog struct {
	mu    sync.Mutex
	store *storage.Store
}

// New creates a catalog over the given store.
func New(store *storage.Store) *Catalog {
	return &Catalog{store: store}
}

// Store exposes the underlying index store.
func (c *Catalog) Store() *storage.Store { return c.store }

// Workspaces returns the full workspaces index, auto-creating the
// default workspace on first run.
func (c *Catalog) Workspaces() (*storage.WorkspacesIndex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.LoadWorkspaces()
}

// CreateWorkspace creates a workspace with the given name.
func (c *Catalog) CreateWorkspace(name string) (*storage.WorkspaceMeta, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, invalid("workspace name cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := storage.NowISO()
	ws := storage.WorkspaceMeta{
		ID:            uuid.New().String(),
		Name:          trimmed,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	index, err := c.store.LoadWorkspaces()
	if err != nil {
		return nil, err
	}
	index.Workspaces = append(index.Workspaces, ws)
	if err := c.store.SaveWorkspaces(index); err != nil {
		return nil, err
	}
	return &ws, nil
}

// RenameWorkspace updates a workspace's name and bumps its timestamp.
func (c *Catalog) RenameWorkspace(workspaceID, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return invalid("workspace name cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadWorkspaces()
	if err != nil {
		return err
	}
	ws := findWorkspace(index, workspaceID)
	if ws == nil {
		return notFound("workspace", workspaceID)
	}
	ws.Name = trimmed
	ws.LastUpdatedAt = storage.NowISO()
	return c.store.SaveWorkspaces(index)
}

// DeleteWorkspace removes a workspace and cascades to all folders and
// chats that belong to it, including their message-log files. The last
// remaining workspace cannot be deleted. If the active workspace is
// deleted, the first remaining one becomes active.
func (c *Catalog) DeleteWorkspace(workspaceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadWorkspaces()
	if err != nil {
		return err
	}
	if len(index.Workspaces) <= 1 {
		return invalid("cannot delete the last workspace: at least one workspace must exist")
	}

	pos := -1
	for i := range index.Workspaces {
		if index.Workspaces[i].ID == workspaceID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return notFound("workspace", workspaceID)
	}

	index.Workspaces = append(index.Workspaces[:pos], index.Workspaces[pos+1:]...)
	if index.ActiveWorkspaceID == workspaceID {
		index.ActiveWorkspaceID = ""
		if len(index.Workspaces) > 0 {
			index.ActiveWorkspaceID = index.Workspaces[0].ID
		}
	}
	if err := c.store.SaveWorkspaces(index); err != nil {
		return err
	}

	if err := c.deleteFoldersForWorkspace(workspaceID); err != nil {
		return err
	}
	return c.deleteChatsForWorkspace(workspaceID)
}

// SetActiveWorkspace updates the active workspace pointer.
func (c *Catalog) SetActiveWorkspace(workspaceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadWorkspaces()
	if err != nil {
		return err
	}
	if findWorkspace(index, workspaceID) == nil {
		return notFound("workspace", workspaceID)
	}
	index.ActiveWorkspaceID = workspaceID
	return c.store.SaveWorkspaces(index)
}

// FoldersForWorkspace returns the folders belonging to a workspace, in
// index order.
func (c *Catalog) FoldersForWorkspace(workspaceID string) ([]storage.FolderMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadFolders()
	if err != nil {
		return nil, err
	}
	folders := []storage.FolderMeta{}
	for _, f := range index.Folders {
		if f.WorkspaceID == workspaceID {
			folders = append(folders, f)
		}
	}
	return folders, nil
}

// CreateFolder creates a folder inside a workspace.
func (c *Catalog) CreateFolder(workspaceID, name string) (*storage.FolderMeta, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, invalid("folder name cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := storage.NowISO()
	folder := storage.FolderMeta{
		ID:            uuid.New().String(),
		Name:          trimmed,
		WorkspaceID:   workspaceID,
		ChatIDs:       []string{},
		Tags:          []string{},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	index, err := c.store.LoadFolders()
	if err != nil {
		return nil, err
	}
	index.Folders = append(index.Folders, folder)
	if err := c.store.SaveFolders(index); err != nil {
		return nil, err
	}
	return &folder, nil
}

// RenameFolder updates a folder's name and bumps its timestamp.
func (c *Catalog) RenameFolder(folderID, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return invalid("folder name cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadFolders()
	if err != nil {
		return err
	}
	folder := findFolder(index, folderID)
	if folder == nil {
		return notFound("folder", folderID)
	}
	folder.Name = trimmed
	folder.LastUpdatedAt = storage.NowISO()
	return c.store.SaveFolders(index)
}

// DeleteFolder removes a folder and releases its chats: each chat's
// folder_id is cleared, the chats themselves survive. Clearing the
// back-references is best-effort; one failing chat does not abort the
// removal or the remaining chats.
func (c *Catalog) DeleteFolder(folderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadFolders()
	if err != nil {
		return err
	}
	pos := -1
	for i := range index.Folders {
		if index.Folders[i].ID == folderID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return notFound("folder", folderID)
	}

	released := append([]string(nil), index.Folders[pos].ChatIDs...)
	index.Folders = append(index.Folders[:pos], index.Folders[pos+1:]...)
	if err := c.store.SaveFolders(index); err != nil {
		return err
	}

	for _, chatID := range released {
		if err := c.setChatFolder(chatID, nil); err != nil {
			log.Warn("failed to release chat from deleted folder",
				"folder_id", folderID, "chat_id", chatID, "error", err)
		}
	}
	return nil
}

// AddChatToFolder records a chat in a folder's chat_ids and points the
// chat's folder_id at the folder. Adding a chat that is already in the
// folder is a no-op on the folder side; the chat side is always
// updated. This pair with RemoveChatFromFolder is the only sanctioned
// way to mutate either half of the link.
func (c *Catalog) AddChatToFolder(folderID, chatID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadFolders()
	if err != nil {
		return err
	}
	folder := findFolder(index, folderID)
	if folder == nil {
		return notFound("folder", folderID)
	}

	present := false
	for _, id := range folder.ChatIDs {
		if id == chatID {
			present = true
			break
		}
	}
	if !present {
		folder.ChatIDs = append(folder.ChatIDs, chatID)
		folder.LastUpdatedAt = storage.NowISO()
	}
	if err := c.store.SaveFolders(index); err != nil {
		return err
	}

	return c.setChatFolder(chatID, &folderID)
}

// RemoveChatFromFolder removes a chat from a folder's chat_ids and
// clears the chat's folder_id. A chat absent from chat_ids is a no-op
// on the folder side.
func (c *Catalog) RemoveChatFromFolder(folderID, chatID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadFolders()
	if err != nil {
		return err
	}
	folder := findFolder(index, folderID)
	if folder == nil {
		return notFound("folder", folderID)
	}

	kept := folder.ChatIDs[:0]
	for _, id := range folder.ChatIDs {
		if id != chatID {
			kept = append(kept, id)
		}
	}
	folder.ChatIDs = kept
	folder.LastUpdatedAt = storage.NowISO()
	if err := c.store.SaveFolders(index); err != nil {
		return err
	}

	return c.setChatFolder(chatID, nil)
}

// AllChats returns every chat in the index.
func (c *Catalog) AllChats() ([]storage.ChatMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadChats()
	if err != nil {
		return nil, err
	}
	return index.Chats, nil
}

// ChatsForWorkspace returns the chats belonging to a workspace, in
// index order.
func (c *Catalog) ChatsForWorkspace(workspaceID string) ([]storage.ChatMeta, error) {
	return c.SearchChats(workspaceID, "")
}

// SearchChats returns the chats of a workspace whose title contains
// the query, case-insensitively. An empty (or all-whitespace) query
// matches every chat in the workspace, in index order.
func (c *Catalog) SearchChats(workspaceID, query string) ([]storage.ChatMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadChats()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := []storage.ChatMeta{}
	for _, chat := range index.Chats {
		if chat.WorkspaceID != workspaceID {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(chat.ChatTitle), needle) {
			matches = append(matches, chat)
		}
	}
	return matches, nil
}

// ChatMessages returns a chat's message log, empty when no log file
// exists yet.
func (c *Catalog) ChatMessages(chatID string) ([]storage.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.store.LoadChatData(chatID)
	if err != nil {
		return nil, err
	}
	return data.Messages, nil
}

// CreateChat creates a new chat with a title derived from the first
// message, writes an empty message log, and appends the chat to the
// index. folderID may be nil for chats created directly in a
// workspace.
func (c *Catalog) CreateChat(model, firstMessage, workspaceID string, folderID *string) (*storage.ChatMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.New().String()
	now := storage.NowISO()
	meta := storage.ChatMeta{
		ID:            id,
		ChatTitle:     TitleFromMessage(firstMessage),
		FileLocation:  c.store.Paths().ChatFileLocation(id),
		ModelUsed:     model,
		WorkspaceID:   workspaceID,
		FolderID:      folderID,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	if err := c.store.SaveChatData(id, &storage.ChatData{Messages: []storage.ChatMessage{}}); err != nil {
		return nil, err
	}

	index, err := c.store.LoadChats()
	if err != nil {
		return nil, err
	}
	index.Chats = append(index.Chats, meta)
	if err := c.store.SaveChats(index); err != nil {
		return nil, err
	}
	return &meta, nil
}

// RenameChat updates a chat's title and bumps its timestamp.
func (c *Catalog) RenameChat(chatID, newTitle string) error {
	trimmed := strings.TrimSpace(newTitle)
	if trimmed == "" {
		return invalid("chat title cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadChats()
	if err != nil {
		return err
	}
	chat := findChat(index, chatID)
	if chat == nil {
		return notFound("chat", chatID)
	}
	chat.ChatTitle = trimmed
	chat.LastUpdatedAt = storage.NowISO()
	return c.store.SaveChats(index)
}

// DeleteChat removes a chat from the index, detaches it from its
// folder if it has one, and deletes its message-log file. The folder
// detach and the file delete are best-effort.
func (c *Catalog) DeleteChat(chatID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadChats()
	if err != nil {
		return err
	}
	pos := -1
	for i := range index.Chats {
		if index.Chats[i].ID == chatID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return notFound("chat", chatID)
	}

	if folderID := index.Chats[pos].FolderID; folderID != nil {
		if err := c.detachFromFolder(*folderID, chatID); err != nil {
			log.Warn("failed to detach chat from folder during delete",
				"chat_id", chatID, "folder_id", *folderID, "error", err)
		}
	}

	index.Chats = append(index.Chats[:pos], index.Chats[pos+1:]...)
	if err := c.store.SaveChats(index); err != nil {
		return err
	}

	if err := c.store.DeleteChatData(chatID); err != nil {
		log.Warn("failed to delete chat message log", "chat_id", chatID, "error", err)
	}
	return nil
}

// UpdateChatTimestamp bumps a chat's last_updated_at. An unknown chat
// id is silently ignored, matching the tolerance of the streaming
// finalize step.
func (c *Catalog) UpdateChatTimestamp(chatID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.store.LoadChats()
	if err != nil {
		return err
	}
	if chat := findChat(index, chatID); chat != nil {
		chat.LastUpdatedAt = storage.NowISO()
	}
	return c.store.SaveChats(index)
}

// TitleFromMessage derives a chat title from the first message:
// messages longer than the limit are cut to exactly the first 50
// characters with a "..." marker appended, shorter messages are used
// verbatim.
func TitleFromMessage(firstMessage string) string {
	if utf8.RuneCountInString(firstMessage) <= titleLimit {
		return firstMessage
	}
	runes := []rune(firstMessage)
	return string(runes[:titleLimit]) + "..."
}

// setChatFolder updates the chat side of the folder link. It is the
// unexported half of the attach/detach pair; callers hold c.mu and
// have already updated the folder side.
func (c *Catalog) setChatFolder(chatID string, folderID *string) error {
	index, err := c.store.LoadChats()
	if err != nil {
		return err
	}
	chat := findChat(index, chatID)
	if chat == nil {
		return notFound("chat", chatID)
	}
	chat.FolderID = folderID
	chat.LastUpdatedAt = storage.NowISO()
	return c.store.SaveChats(index)
}

// detachFromFolder removes a chat id from a folder's chat_ids without
// touching the chat side. Used by DeleteChat, which drops the chat
// record itself. Callers hold c.mu.
func (c *Catalog) detachFromFolder(folderID, chatID string) error {
	index, err := c.store.LoadFolders()
	if err != nil {
		return err
	}
	folder := findFolder(index, folderID)
	if folder == nil {
		return notFound("folder", folderID)
	}
	kept := folder.ChatIDs[:0]
	for _, id := range folder.ChatIDs {
		if id != chatID {
			kept = append(kept, id)
		}
	}
	folder.ChatIDs = kept
	folder.LastUpdatedAt = storage.NowISO()
	return c.store.SaveFolders(index)
}

// deleteFoldersForWorkspace drops every folder belonging to a
// workspace. Called from DeleteWorkspace with c.mu held.
func (c *Catalog) deleteFoldersForWorkspace(workspaceID string) error {
	index, err := c.store.LoadFolders()
	if err != nil {
		return err
	}
	kept := index.Folders[:0]
	for _, f := range index.Folders {
		if f.WorkspaceID != workspaceID {
			kept = append(kept, f)
		}
	}
	index.Folders = kept
	return c.store.SaveFolders(index)
}

// deleteChatsForWorkspace drops every chat belonging to a workspace
// along with its message-log file. File deletion is best-effort.
// Called from DeleteWorkspace with c.mu held.
func (c *Catalog) deleteChatsForWorkspace(workspaceID string) error {
	index, err := c.store.LoadChats()
	if err != nil {
		return err
	}
	kept := index.Chats[:0]
	for _, chat := range index.Chats {
		if chat.WorkspaceID != workspaceID {
			kept = append(kept, chat)
			continue
		}
		if err := c.store.DeleteChatData(chat.ID); err != nil {
			log.Warn("failed to delete chat message log during workspace cascade",
				"chat_id", chat.ID, "workspace_id", workspaceID, "error", err)
		}
	}
	index.Chats = kept
	return c.store.SaveChats(index)
}

func findWorkspace(index *storage.WorkspacesIndex, id string) *storage.WorkspaceMeta {
	for i := range index.Workspaces {
		if index.Workspaces[i].ID == id {
			return &index.Workspaces[i]
		}
	}
	return nil
}

func findFolder(index *storage.FoldersIndex, id string) *storage.FolderMeta {
	for i := range index.Folders {
		if index.Folders[i].ID == id {
			return &index.Folders[i]
		}
	}
	return nil
}

func findChat(index *storage.ChatsIndex, id string) *storage.ChatMeta {
	for i := range index.Chats {
		if index.Chats[i].ID == id {
			return &index.Chats[i]
		}
	}
	return nil
}
