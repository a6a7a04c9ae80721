package core

import (
	"strings"
	"sync"
)

// DefaultWindow keeps the last three user/assistant exchanges.
const DefaultWindow = 6

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversations holds a rolling window of turns per user for the lifetime of
// the process. Nothing is persisted; a restart forgets every conversation.
type Conversations struct {
	max int

	mu    sync.Mutex
	turns map[string][]Turn // keyed by normalized user id
}

func NewConversations(max int) *Conversations {
	if max <= 0 {
		max = DefaultWindow
	}
	return &Conversations{
		max:   max,
		turns: make(map[string][]Turn),
	}
}

func (c *Conversations) Max() int { return c.max }

// AppendTurn adds a turn and drops the oldest entries beyond the window.
func (c *Conversations) AppendTurn(userID string, role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(key(userID), Turn{Role: role, Content: content})
}

func (c *Conversations) appendLocked(k string, t Turn) {
	h := append(c.turns[k], t)
	if over := len(h) - c.max; over > 0 {
		// copy so the evicted prefix is not pinned by the backing array
		h = append([]Turn(nil), h[over:]...)
	}
	c.turns[k] = h
}

// BuildPrompt records text as the user's newest turn and returns the message
// list for a completion call: the persona as a system turn, then the window.
// The caller appends the assistant reply after a successful call.
func (c *Conversations) BuildPrompt(userID, persona, text string) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(userID)
	c.appendLocked(k, Turn{Role: RoleUser, Content: text})

	h := c.turns[k]
	out := make([]Turn, 0, len(h)+1)
	out = append(out, Turn{Role: RoleSystem, Content: persona})
	out = append(out, h...)
	return out
}

// History returns a copy of the user's current window, oldest first.
func (c *Conversations) History(userID string) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.turns[key(userID)]...)
}

func (c *Conversations) Len(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns[key(userID)])
}

// Reset forgets the user's window.
func (c *Conversations) Reset(userID string) {
	c.mu.Lock()
	delete(c.turns, key(userID))
	c.mu.Unlock()
}

func key(userID string) string { return strings.TrimSpace(userID) }
