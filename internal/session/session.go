// Package session implements the observable search state machine: it
// validates and submits queries, applies backend responses, and exposes
// the current phase, results, and selection to the presentation layer.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/terasu/internal/models"
	"github.com/hyperjump/terasu/internal/query"
)

// User-visible messages for the two error states the session produces
// itself, without backend involvement.
const (
	EmptyQueryMessage = "empty query"
	NoResultsMessage  = "no matching documents"
)

// Phase is the primary state of a search session. Exactly one phase is
// active at a time; the selected document is orthogonal to it.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseError
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseResults:
		return "results"
	default:
		return "unknown"
	}
}

// Backend is the search collaborator the session submits queries to.
type Backend interface {
	Search(ctx context.Context, query string) (models.ResultSet, error)
}

// Snapshot is an immutable view of the session at one point in time.
// Message is meaningful in PhaseError, Results in PhaseResults; Selected
// is set only while a document from the current results is open.
type Snapshot struct {
	Generation uint64
	Phase      Phase
	Query      string
	Message    string
	Results    models.ResultSet
	Selected   *models.Document
}

// Listener receives a snapshot after every state transition, in
// transition order. It is invoked with the session locked and must not
// call back into the session.
type Listener func(Snapshot)

// Session is the search state machine. All state is guarded by one
// mutex; the backend call is the only asynchronous step. Stale responses
// are discarded by generation comparison, never by cancellation: every
// submission increments the generation, and a response is applied only
// if its generation is still the latest, so the last submission always
// wins regardless of response arrival order.
type Session struct {
	backend Backend
	logger  *zap.Logger

	mu         sync.Mutex
	listener   Listener
	generation uint64
	phase      Phase
	query      string
	message    string
	results    models.ResultSet
	selected   int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a logger for debug output (submissions, discarded
// responses).
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithListener sets the transition listener.
func WithListener(fn Listener) Option {
	return func(s *Session) { s.listener = fn }
}

// New creates an idle session on the given backend.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:  backend,
		logger:   zap.NewNop(),
		phase:    PhaseIdle,
		selected: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetListener replaces the transition listener. Pass nil to stop receiving
// notifications.
func (s *Session) SetListener(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

// Submit starts a new search for raw. A blank query moves the session to
// the error state locally, without contacting the backend. A non-blank
// query moves it to loading and issues the backend call in its own
// goroutine; the corresponding response later moves it to results, or to
// the error state on a backend-reported failure, a transport failure, or
// an empty result list. Either way the submission supersedes all earlier
// ones: their responses, whenever they arrive, are discarded.
func (s *Session) Submit(ctx context.Context, raw string) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.selected = -1
	if query.IsBlank(raw) {
		s.phase = PhaseError
		s.query = ""
		s.message = EmptyQueryMessage
		s.results = nil
		s.notifyLocked()
		s.mu.Unlock()
		return
	}
	trimmed := strings.TrimSpace(raw)
	s.phase = PhaseLoading
	s.query = trimmed
	s.message = ""
	s.results = nil
	s.logger.Debug("submitting query", zap.String("query", trimmed), zap.Uint64("generation", gen))
	s.notifyLocked()
	s.mu.Unlock()

	go func() {
		results, err := s.backend.Search(ctx, trimmed)
		s.apply(gen, results, err)
	}()
}

// apply installs a backend response if it still belongs to the latest
// submission.
func (s *Session) apply(gen uint64, results models.ResultSet, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug("discarding stale search response",
			zap.Uint64("generation", gen),
			zap.Uint64("current", s.generation))
		return
	}
	switch {
	case err != nil:
		s.phase = PhaseError
		s.message = err.Error()
		s.results = nil
	case len(results) == 0:
		s.phase = PhaseError
		s.message = NoResultsMessage
		s.results = nil
	default:
		s.phase = PhaseResults
		s.message = ""
		s.results = results
	}
	s.selected = -1
	s.notifyLocked()
}

// Select opens the i-th document (0-based) of the current results.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResults {
		return fmt.Errorf("no results to select from")
	}
	if i < 0 || i >= len(s.results) {
		return fmt.Errorf("result %d does not exist", i+1)
	}
	s.selected = i
	s.notifyLocked()
	return nil
}

// ClearSelection closes the open document without touching the primary
// phase or the results.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected < 0 {
		return
	}
	s.selected = -1
	s.notifyLocked()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Generation: s.generation,
		Phase:      s.phase,
		Query:      s.query,
		Message:    s.message,
		Results:    s.results,
	}
	if s.selected >= 0 && s.selected < len(s.results) {
		doc := s.results[s.selected]
		snap.Selected = &doc
	}
	return snap
}

func (s *Session) notifyLocked() {
	if s.listener != nil {
		s.listener(s.snapshotLocked())
	}
}
