package chat

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/dinocodesx/oalpaca/internal/catalog"
	"github.com/dinocodesx/oalpaca/internal/events"
	"github.com/dinocodesx/oalpaca/internal/ollama"
	"github.com/dinocodesx/oalpaca/internal/storage"
)

// Service runs the send-message pipeline: it resolves or creates the
// chat, persists the user message synchronously, then consumes the
// model's streamed reply in a detached goroutine, emitting one event
// per progress record and committing the assistant message exactly
// once when the terminal record arrives.
type Service struct {
	catalog *catalog.Catalog
	store   *storage.Store
	client  *ollama.Client
	broker  *events.Broker[any]
	logger  *log.Logger

	// chatLocks serializes sends against the same chat id so two
	// concurrent streams cannot clobber each other's log writes.
	// Entries are refcounted and pruned on release so the map does
	// not grow with every chat ever messaged.
	chatLocks   map[string]*chatLock
	chatLocksMu sync.Mutex
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// SendRequest is the input to SendMessage. ChatID is empty for the
// first message of a new conversation; WorkspaceID must name the
// workspace a newly created chat belongs to (the API layer resolves
// the active workspace when the caller omits one).
type SendRequest struct {
	ChatID      string
	Model       string
	Message     string
	WorkspaceID string
	FolderID    *string
}

// NewService creates a chat service.
func NewService(cat *catalog.Catalog, client *ollama.Client, broker *events.Broker[any], logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		catalog:   cat,
		store:     cat.Store(),
		client:    client,
		broker:    broker,
		logger:    logger.With("component", "chat"),
		chatLocks: make(map[string]*chatLock),
	}
}

// SendMessage appends the user message to the chat (creating the chat
// when no id is given), starts the streaming reply in the background,
// and returns the resolved chat id immediately. Progress and
// completion are reported exclusively through the event broker; the
// background stream is not cancellable by the caller and runs to
// completion, error, or backend-initiated end of stream.
func (s *Service) SendMessage(ctx context.Context, req SendRequest) (string, error) {
	chatID := req.ChatID
	if chatID == "" {
		meta, err := s.catalog.CreateChat(req.Model, req.Message, req.WorkspaceID, req.FolderID)
		if err != nil {
			return "", err
		}
		chatID = meta.ID
	}

	lock := s.acquireChatLock(chatID)
	data, err := s.store.LoadChatData(chatID)
	if err != nil {
		s.releaseChatLock(chatID, lock)
		return "", err
	}
	data.Messages = append(data.Messages, storage.ChatMessage{
		Role:    storage.RoleUser,
		Content: req.Message,
	})
	if err := s.store.SaveChatData(chatID, data); err != nil {
		s.releaseChatLock(chatID, lock)
		return "", err
	}
	history := make([]ollama.Message, len(data.Messages))
	for i, m := range data.Messages {
		history[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	s.releaseChatLock(chatID, lock)

	go s.stream(chatID, req.Model, history)

	return chatID, nil
}

// acquireChatLock takes the mutex guarding a chat's message log. The
// refcount is bumped before locking, so a waiter keeps the entry
// alive until its own release.
func (s *Service) acquireChatLock(chatID string) *chatLock {
	s.chatLocksMu.Lock()
	lock, ok := s.chatLocks[chatID]
	if !ok {
		lock = &chatLock{}
		s.chatLocks[chatID] = lock
	}
	lock.refs++
	s.chatLocksMu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseChatLock unlocks the mutex and drops the map entry once no
// holder or waiter references it.
func (s *Service) releaseChatLock(chatID string, lock *chatLock) {
	lock.mu.Unlock()

	s.chatLocksMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.chatLocks, chatID)
	}
	s.chatLocksMu.Unlock()
}

// stream consumes one streamed reply. It owns the byte buffer that
// reassembles newline-delimited records across arbitrary chunk
// boundaries and the finalized flag that guarantees the assistant
// message is committed at most once, whichever path detects the
// terminal record.
func (s *Service) stream(chatID, model string, history []ollama.Message) {
	body, err := s.client.ChatStream(context.Background(), ollama.ChatRequest{
		Model:    model,
		Messages: history,
	})
	if err != nil {
		s.logger.Error("chat stream request failed", "chat_id", chatID, "error", err)
		s.publishError(chatID, err.Error())
		return
	}
	defer body.Close()

	s.consume(&streamState{chatID: chatID}, body)
}

// consume runs the read loop over one response body, handling every
// complete record plus the unterminated remainder.
func (s *Service) consume(st *streamState, body io.Reader) {
	chatID := st.chatID
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			// Chunk boundaries are not aligned to encoded-character
			// boundaries; a chunk that is not valid UTF-8 is dropped
			// rather than aborting the stream.
			if utf8.Valid(chunk) {
				st.buffer += string(chunk)
				s.drainRecords(st)
			} else {
				s.logger.Warn("dropping non-UTF-8 stream chunk", "chat_id", chatID, "bytes", n)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			s.logger.Error("chat stream read failed", "chat_id", chatID, "error", readErr)
			s.publishError(chatID, "Stream error: "+readErr.Error())
			break
		}
	}

	// The stream can end with a final record that never got its
	// trailing newline.
	if remainder := strings.TrimSpace(st.buffer); remainder != "" {
		s.handleRecord(st, remainder)
	}
}

// streamState is the per-invocation accumulation of one streamed
// reply.
type streamState struct {
	chatID    string
	buffer    string
	full      strings.Builder
	finalized bool
}

// drainRecords extracts and handles every complete newline-terminated
// record currently in the buffer.
func (s *Service) drainRecords(st *streamState) {
	for {
		idx := strings.IndexByte(st.buffer, '\n')
		if idx < 0 {
			return
		}
		line := strings.TrimSpace(st.buffer[:idx])
		st.buffer = st.buffer[idx+1:]
		if line == "" {
			continue
		}
		s.handleRecord(st, line)
	}
}

// handleRecord parses one progress record, accumulates its content
// fragment, re-emits it as an event, and triggers finalization on the
// first terminal record. Both the main loop and the remainder path
// funnel through here, so the finalized guard makes the commit happen
// exactly once. A malformed record is logged and skipped.
func (s *Service) handleRecord(st *streamState, line string) {
	var record ollama.StreamRecord
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		s.logger.Warn("failed to parse stream record", "chat_id", st.chatID, "error", err, "line", line)
		return
	}

	content := ""
	if record.Message != nil {
		content = record.Message.Content
	}
	st.full.WriteString(content)

	s.broker.Publish(events.ChatStreamChunk, events.StreamChunk{
		ChatID:     st.chatID,
		Content:    content,
		Done:       record.Done,
		DoneReason: record.DoneReason,
	}, events.WithChatID(st.chatID))

	if record.Done && !st.finalized {
		st.finalized = true
		s.finalize(st.chatID, st.full.String())
	}
}

// finalize commits the accumulated reply: reload the message log
// (tolerating one that does not exist yet), append the assistant
// message, save, and bump the chat's timestamp. The initiating call
// returned long ago, so failures here are logged rather than raised.
func (s *Service) finalize(chatID, fullReply string) {
	lock := s.acquireChatLock(chatID)
	data, err := s.store.LoadChatData(chatID)
	if err != nil {
		s.logger.Error("failed to reload chat log for finalize", "chat_id", chatID, "error", err)
		data = &storage.ChatData{Messages: []storage.ChatMessage{}}
	}
	data.Messages = append(data.Messages, storage.ChatMessage{
		Role:    storage.RoleAssistant,
		Content: fullReply,
	})
	if err := s.store.SaveChatData(chatID, data); err != nil {
		s.logger.Error("failed to persist assistant message", "chat_id", chatID, "error", err)
	}
	s.releaseChatLock(chatID, lock)

	if err := s.catalog.UpdateChatTimestamp(chatID); err != nil {
		s.logger.Warn("failed to update chat timestamp", "chat_id", chatID, "error", err)
	}
}

func (s *Service) publishError(chatID, message string) {
	s.broker.Publish(events.ChatStreamError, events.StreamError{
		ChatID: chatID,
		Error:  message,
	}, events.WithChatID(chatID))
}
