// Package session keeps per-conversation history in memory so follow-up
// questions carry context. History is capped: only the most recent
// exchanges survive, which bounds prompt growth.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxHistory is how many question/answer exchanges a session keeps.
const DefaultMaxHistory = 2

// Exchange is one completed question and its answer.
type Exchange struct {
	Question string
	Answer   string
}

// Manager stores conversation sessions in memory. Safe for concurrent use.
// Sessions live until cleared; there is no expiry.
type Manager struct {
	mu         sync.RWMutex
	maxHistory int
	sessions   map[string][]Exchange
}

// NewManager creates a Manager keeping up to maxHistory exchanges per
// session. Zero or negative selects DefaultMaxHistory.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		maxHistory: maxHistory,
		sessions:   make(map[string][]Exchange),
	}
}

// Create starts a new empty session and returns its ID.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// AddExchange appends a completed exchange, creating the session if the ID
// is new, and evicts the oldest exchanges beyond the history cap.
func (m *Manager) AddExchange(id, question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := append(m.sessions[id], Exchange{Question: question, Answer: answer})
	if len(history) > m.maxHistory {
		history = history[len(history)-m.maxHistory:]
	}
	m.sessions[id] = history
}

// History returns the session's retained exchanges formatted for the
// generation prompt, or "" for an unknown or empty session.
func (m *Manager) History(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.sessions[id]
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ex := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User: " + ex.Question + "\nAssistant: " + ex.Answer)
	}
	return b.String()
}

// Clear removes a session and its history.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
