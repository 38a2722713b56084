package api

import "time"

// SessionInfo is one entry of the server-owned session list. The client
// keeps a possibly stale copy; message_count is server-computed and only
// ever refreshed by re-fetching the list.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Domains      []string  `json:"domains"`
}

// ChatMessage is a message as stored in a session's server-side history.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Response    string    `json:"response"`
	SessionID   string    `json:"session_id"`
	MessageType string    `json:"message_type,omitempty"` // "emotional" or "logical"
	RagUsed     bool      `json:"rag_used,omitempty"`
	CacheHit    bool      `json:"cache_hit,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type SystemStatus struct {
	ActiveDomains    []string        `json:"active_domains"`
	AvailableDomains []string        `json:"available_domains"`
	TotalDocuments   int             `json:"total_documents"`
	CacheSize        int             `json:"cache_size"`
	MemoryEnabled    map[string]bool `json:"memory_enabled"`
	LunarInfo        string          `json:"lunar_info,omitempty"`
}

type TitleUpdate struct {
	Title string `json:"title"`
}

type LunarDetails struct {
	Date                   string  `json:"date"`
	Phase                  string  `json:"phase"`
	IlluminationPercentage float64 `json:"illumination_percentage"`
	DaysFromNewMoon        float64 `json:"days_from_new_moon"`
	DaysToFullMoon         float64 `json:"days_to_full_moon"`
}

type LunarInfo struct {
	Summary string       `json:"summary"`
	Details LunarDetails `json:"details"`
}

type CommandRequest struct {
	Command   string `json:"command"`
	SessionID string `json:"session_id,omitempty"`
}

type CommandResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

type AuthUser struct {
	Sub   string `json:"sub,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type AuthStatus struct {
	Authenticated bool      `json:"authenticated"`
	User          *AuthUser `json:"user,omitempty"`
}

type DomainToggleResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
