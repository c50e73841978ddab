package models

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Category classifies a conversation thread. The set is closed; anything a
// classifier returns outside it is normalized to CategoryChat.
type Category string

const (
	CategoryNote     Category = "note"
	CategoryVideo    Category = "video"
	CategoryDocument Category = "document"
	CategoryChat     Category = "chat"
)

// ValidCategory reports whether c is one of the known thread categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryNote, CategoryVideo, CategoryDocument, CategoryChat:
		return true
	}
	return false
}

// Agent is a named persona: a system prompt plus a short personality
// description. Agents are edited only through the admin surface, never by
// the chat flow.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Personality  string    `json:"personality"`
	SystemPrompt string    `json:"prompt"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is one turn in a thread. AgentName is set on assistant messages so
// transcripts with multiple agents stay attributable.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AgentName string    `json:"agent_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is one conversation: an ordered message history owned by a single
// agent. ID is empty while the thread lives only in memory as a draft; the
// storage layer issues it on create.
type Thread struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agent_id"`
	Title     string     `json:"title"`
	Type      Category   `json:"type"`
	Summary   string     `json:"summary"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// User is an account that can sign in. PasswordHash is a bcrypt hash and is
// never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // "admin" | "user"
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitempty"`
}

// APIProvider holds one generation-provider credential row. The active row
// with a non-empty key drives generation.
type APIProvider struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider_id"` // groq | gemini | openai | openrouter
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	Model     string    `json:"model"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Webhook is an outbound notification target for a single event kind.
type Webhook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Event     string    `json:"event"` // e.g. user_created, thread_created
	CreatedAt time.Time `json:"created_at"`
}
