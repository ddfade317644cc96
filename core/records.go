package core

import "time"

// MemoryEntry is the immutable record of one turn. Its AgentID scopes which
// context windows it may appear in.
type MemoryEntry struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	SessionID   string    `json:"session_id"`
	UserMessage string    `json:"user_message"`
	AgentReply  string    `json:"agent_reply"`
	Timestamp   time.Time `json:"timestamp"`
}

// KnowledgeFragment is globally shared reference content, read-only to the engine's turns.
type KnowledgeFragment struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Category       string    `json:"category"`
	AuthorityLevel string    `json:"authority_level"`
	CreatedAt      time.Time `json:"created_at"`
}

// Project is an initiative optionally linked to one agent.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Objective       string    `json:"objective"`
	PersonalityText string    `json:"personality_text,omitempty"`
	CorePrinciples  []string  `json:"core_principles,omitempty"`
	Briefing        string    `json:"briefing,omitempty"`
	Status          string    `json:"status,omitempty"`
	AgentID         string    `json:"agent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SessionContext is passed explicitly into every engine call instead of
// reading shared globals.
type SessionContext struct {
	SessionID    string
	AgentID      string
	VoiceEnabled bool
}

// FileRef is the opaque reference returned by a FileStore upload.
type FileRef struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
}
