package browse

import (
	"sync"
	"time"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

// noActiveDocument marks a session that has not opened anything yet.
const noActiveDocument = -1

// Session holds everything one caller accumulates across tool calls:
// materialized documents, the active document, the search cursor, and the
// per-session LLM configuration. Fields other than lastAccess are only
// touched while holding the session's lock from the registry's Locker;
// lastAccess has its own mutex so the cleanup loop can read it concurrently.
type Session struct {
	key       string
	documents []*Document
	activeID  int
	cursor    *Cursor
	llm       *domain.LLMConfig
	createdAt time.Time

	accessMu   sync.Mutex
	lastAccess time.Time
}

func newSession(key string) *Session {
	now := time.Now()
	return &Session{
		key:        key,
		activeID:   noActiveDocument,
		createdAt:  now,
		lastAccess: now,
	}
}

// Key returns the session identity.
func (s *Session) Key() string { return s.key }

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.accessMu.Lock()
	s.lastAccess = time.Now()
	s.accessMu.Unlock()
}

// LastAccess returns the time of the most recent activity.
func (s *Session) LastAccess() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.lastAccess
}

// addDocument materializes content as a new document, makes it active, and
// drops the cursor. IDs are indices into the documents slice, so they stay
// monotonic and are never reused within the session.
func (s *Session) addDocument(title, url, text string) *Document {
	doc := newDocument(len(s.documents), title, url, text)
	s.documents = append(s.documents, doc)
	s.activeID = doc.ID
	s.cursor = nil
	return doc
}

// document returns the document with the given ID, or nil.
func (s *Session) document(id int) *Document {
	if id < 0 || id >= len(s.documents) {
		return nil
	}
	return s.documents[id]
}

// active returns the active document, or nil before any open.
func (s *Session) active() *Document {
	return s.document(s.activeID)
}

// setActive switches the active document and drops the cursor if the
// selection actually changed.
func (s *Session) setActive(id int) {
	if s.activeID != id {
		s.activeID = id
		s.cursor = nil
	}
}

// snapshot builds a read-only status view of the session.
func (s *Session) snapshot() *domain.Status {
	st := &domain.Status{
		SessionKey:     s.key,
		OpenDocuments:  len(s.documents),
		ActiveDocument: s.activeID,
		CursorLine:     -1,
	}
	if s.cursor != nil {
		st.CursorPattern = s.cursor.Pattern
		st.CursorLine = s.cursor.Line
	}
	if s.llm != nil {
		st.LLMConfigured = true
		st.LLMModel = s.llm.Model
	}
	return st
}
