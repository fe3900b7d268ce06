package domain

import "time"

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Session represents a chat session
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents one conversation turn
type Message struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Reasoning string    `json:"reasoning,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Clone returns a copy of m that shares no slices with it
func (m Message) Clone() Message {
	if m.Sources != nil {
		sources := make([]Source, len(m.Sources))
		copy(sources, m.Sources)
		m.Sources = sources
	}
	return m
}

// Source represents a citation attached to an assistant message.
// URL stays empty until the server resolves it.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// WireMessage is the upstream form of a Message. Reasoning and sources
// are never sent back to the server.
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToWire converts a transcript prefix to its upstream form
func ToWire(messages []Message) []WireMessage {
	out := make([]WireMessage, len(messages))
	for i, m := range messages {
		out[i] = WireMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// SubmitRequest is the request to send a new user turn
type SubmitRequest struct {
	Content string         `json:"content" binding:"required"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// RegenerateRequest is the request to regenerate the last assistant turn
type RegenerateRequest struct {
	Extra map[string]any `json:"extra,omitempty"`
}

// TranscriptView is what the rendering layer consumes
type TranscriptView struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	IsLoading bool      `json:"is_loading"`
}

// Stats represents system statistics
type Stats struct {
	TotalSessions int `json:"total_sessions"`
	TotalChats    int `json:"total_chats"`
}

// UserInfo is the backend account record returned for the current token
type UserInfo struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	IsActive  bool    `json:"is_active"`
	IsAdmin   bool    `json:"is_admin"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// LoginRequest is the credential pair posted to the backend login endpoint
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the backend login reply
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// DisplaySettings tells renderers which message parts to show
type DisplaySettings struct {
	ShowProcess    bool `json:"showProcess"`
	ShowReferences bool `json:"showReferences"`
}

// Welcome is the greeting shown on an empty conversation
type Welcome struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
