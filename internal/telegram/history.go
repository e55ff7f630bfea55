package telegram

import (
	"sync"

	"balanced-bowl/internal/assistant"
	"balanced-bowl/internal/llm"
)

// historyWindow is how many exchanges the assistant remembers per chat.
const historyWindow = 5

// chatHistory keeps the latest assistant exchanges of each chat.
type chatHistory struct {
	mu    sync.Mutex
	size  int
	chats map[int64][]assistant.Turn
}

func newChatHistory(size int) *chatHistory {
	return &chatHistory{size: size, chats: make(map[int64][]assistant.Turn)}
}

// Get returns a copy of the chat's remembered turns, oldest first.
func (h *chatHistory) Get(chatID int64) []assistant.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.chats[chatID]
	out := make([]assistant.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records one exchange and forgets the oldest beyond the window.
func (h *chatHistory) Append(chatID int64, message, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := append(h.chats[chatID],
		assistant.Turn{Role: llm.RoleUser, Text: message},
		assistant.Turn{Role: llm.RoleModel, Text: reply},
	)
	if max := h.size * 2; len(turns) > max {
		turns = append([]assistant.Turn(nil), turns[len(turns)-max:]...)
	}
	h.chats[chatID] = turns
}

func (h *chatHistory) Reset(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.chats, chatID)
}
