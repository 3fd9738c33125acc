package chat

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/model/chat"
)

// session pairs the conversation state with its own mutex so mutation is
// serialized per identifier while unrelated sessions proceed concurrently.
type session struct {
	mu   sync.Mutex
	data chat.Session
}

// Registry owns active sessions for their lifetime. Evicted identifiers are
// remembered only through the completed set, which keeps a finished
// conversation from re-entering a non-terminal state under the same token.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	completed map[string]struct{}
}

// NewRegistry bootstraps an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]*session),
		completed: make(map[string]struct{}),
	}
}

// Resolve returns the session for id, allocating a fresh identifier when id
// is empty. A present-but-unknown id gets a new session under that value; if
// the identifier was previously completed the new session starts terminal.
func (r *Registry) Resolve(id string) (string, *session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		id = newSessionID()
	} else if existing, ok := r.sessions[id]; ok {
		return id, existing
	}

	state := chat.StateActive
	if _, done := r.completed[id]; done {
		state = chat.StateCompleted
	}

	created := &session{data: chat.Session{
		ID:        id,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}}
	r.sessions[id] = created
	return id, created
}

// Get returns the session for id without allocating.
func (r *Registry) Get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove evicts the session and records the identifier as completed.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	r.completed[id] = struct{}{}
}

// MarkCompleted records the identifier in the completed set without evicting.
func (r *Registry) MarkCompleted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[id] = struct{}{}
}

// newSessionID mints a token of the form session_<8 hex>_<4 digits>.
func newSessionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "session_" + hex + "_" + strconv.Itoa(1000+rand.IntN(9000))
}
