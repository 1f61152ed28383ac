// Package session implements the per-(owner, token) dedup layer
// fronting record ingestion (spec.md §4.5, component C5).
package session

import (
	"regexp"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"

	"github.com/fleetwatch/core/api"
)

var tokenRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Session is one (owner, token) dedup record, safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	data api.DataSession
}

// LastValueID returns the session's current high-water mark.
func (s *Session) LastValueID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastValueID
}

// Admit applies spec.md §4.5's dedup rule for one incoming record id:
// it returns false (discard) when id is nonzero and not past the
// current high-water mark, true (process) otherwise, advancing the
// mark on every admitted id.
func (s *Session) Admit(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != 0 && id <= s.data.LastValueID {
		return false
	}
	if id > s.data.LastValueID {
		s.data.LastValueID = id
	}
	return true
}

// Table is the process-wide, in-memory session table. Eviction is the
// caller's responsibility (spec.md §4.5: "caller evicts by idle
// policy"); Table only exposes enough to let a caller walk and prune.
type Table struct {
	mu       sync.RWMutex
	sessions map[key]*Session
	log      hclog.Logger
}

type key struct {
	ownerID uint64
	token   string
}

// NewTable builds an empty session table.
func NewTable(log hclog.Logger) *Table {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Table{
		sessions: make(map[key]*Session),
		log:      log.Named("session"),
	}
}

// GetOrCreate returns the session for (ownerID, token), creating it on
// first reference. token must be a 32-character lowercase hex string.
func (t *Table) GetOrCreate(ownerID uint64, token string) (*Session, error) {
	if !tokenRe.MatchString(token) {
		return nil, &invalidTokenError{Token: token}
	}
	k := key{ownerID: ownerID, token: token}

	t.mu.RLock()
	if s, ok := t.sessions[k]; ok {
		t.mu.RUnlock()
		return s, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[k]; ok {
		return s, nil
	}
	s := &Session{data: api.DataSession{OwnerID: ownerID, Token: token}}
	t.sessions[k] = s
	metrics.IncrCounter([]string{"session", "created"}, 1)
	t.log.Debug("session created", "owner_id", ownerID)
	return s, nil
}

// Evict removes a session, e.g. once a caller's idle timer fires.
func (t *Table) Evict(ownerID uint64, token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, key{ownerID: ownerID, token: token})
}

// Len reports the number of live sessions, for idle-sweep callers.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

type invalidTokenError struct {
	Token string
}

func (e *invalidTokenError) Error() string {
	return "session token must be a 32-character lowercase hex string, got " + e.Token
}

func (e *invalidTokenError) Unwrap() error {
	return api.ErrProtocol
}
