package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/jotdown/internal/retrieval"
)

// DefaultDebounce is the quiet window that must elapse after the last input before a search is dispatched
const DefaultDebounce = 500 * time.Millisecond

// State is the session's position in the search lifecycle
type State int

const (
	Idle State = iota
	PendingDebounce
	InFlight
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingDebounce:
		return "pending"
	case InFlight:
		return "in_flight"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Searcher runs one search. Implementations should honor ctx cancellation,
// but a result delivered after cancellation is discarded anyway.
type Searcher interface {
	Search(ctx context.Context, query string, mode retrieval.Mode) (*retrieval.Response, error)
}

// SearcherFunc adapts a function to Searcher
type SearcherFunc func(ctx context.Context, query string, mode retrieval.Mode) (*retrieval.Response, error)

func (f SearcherFunc) Search(ctx context.Context, query string, mode retrieval.Mode) (*retrieval.Response, error) {
	return f(ctx, query, mode)
}

// Snapshot is a consistent copy of the visible session state
type Snapshot struct {
	State      State
	Query      string
	Mode       retrieval.Mode
	Generation uint64
	Response   *retrieval.Response // Set only when State is Completed
	Err        error               // Set only when State is Failed
}

// Observer receives every state transition in the order the transitions happened.
// It is called synchronously and must not call back into the Session.
type Observer func(Snapshot)

// Options configures a Session
type Options struct {
	Debounce time.Duration // 0 selects DefaultDebounce
	Mode     retrieval.Mode
	Observer Observer
	Logger   zerolog.Logger
}

// Session debounces query input, dispatches at most one search at a time and
// guarantees that only the newest query's outcome becomes visible. Every input
// bumps a generation counter; a search result is applied only if the generation
// it was dispatched under is still current.
type Session struct {
	searcher Searcher
	debounce time.Duration
	observer Observer
	logger   zerolog.Logger

	mu         sync.Mutex
	notifyMu   sync.Mutex // serializes observer calls in transition order
	state      State
	query      string
	mode       retrieval.Mode
	generation uint64
	response   *retrieval.Response
	err        error
	timer      *time.Timer
	cancel     context.CancelFunc
	closed     bool
	inflight   sync.WaitGroup
}

// New creates an idle Session
func New(searcher Searcher, opts Options) *Session {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	mode := opts.Mode
	if mode == "" {
		mode = retrieval.ModeLiteral
	}
	return &Session{
		searcher: searcher,
		debounce: debounce,
		observer: opts.Observer,
		logger:   opts.Logger,
		state:    Idle,
		mode:     mode,
	}
}

// SetQuery records new input. Blank input clears the session immediately;
// anything else (re)starts the debounce window, superseding any pending or
// in-flight search.
func (s *Session) SetQuery(query string) {
	if strings.TrimSpace(query) == "" {
		s.Clear()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.query = query
	s.schedule()
}

// SetMode switches the retrieval mode. A non-empty query is searched again under the new mode.
func (s *Session) SetMode(mode retrieval.Mode) {
	s.mu.Lock()
	if s.closed || mode == s.mode {
		s.mu.Unlock()
		return
	}
	s.mode = mode
	if strings.TrimSpace(s.query) == "" {
		s.mu.Unlock()
		return
	}
	s.schedule()
}

// schedule supersedes current work and enters PendingDebounce. Called with mu held; releases it.
func (s *Session) schedule() {
	s.supersede()
	s.response = nil
	s.err = nil
	s.state = PendingDebounce

	gen := s.generation
	s.timer = time.AfterFunc(s.debounce, func() {
		s.dispatch(gen)
	})
	s.unlockAndNotify()
}

// supersede invalidates the pending timer and any in-flight search. Called with mu held.
// An in-flight search is reported as Cancelled before the caller's next transition.
func (s *Session) supersede() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == InFlight {
		s.cancelInFlight()
		s.state = Cancelled
		s.notifyLocked()
	}
}

func (s *Session) cancelInFlight() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// dispatch fires when the debounce window for gen elapses
func (s *Session) dispatch(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.state != PendingDebounce {
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.timer = nil
	s.state = InFlight
	query, mode := s.query, s.mode

	s.inflight.Add(1)
	go s.run(ctx, cancel, gen, query, mode)
	s.unlockAndNotify()
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, gen uint64, query string, mode retrieval.Mode) {
	defer s.inflight.Done()
	defer cancel()

	resp, err := s.searcher.Search(ctx, query, mode)

	s.mu.Lock()
	if gen != s.generation {
		current := s.generation
		s.mu.Unlock()
		s.logger.Debug().
			Uint64("generation", gen).
			Uint64("current", current).
			Str("query", query).
			Msg("stale search result discarded")
		return
	}

	s.cancel = nil
	if err != nil {
		s.state = Failed
		s.err = err
		s.response = nil
	} else {
		s.state = Completed
		s.response = resp
		s.err = nil
	}
	s.unlockAndNotify()
}

// Clear empties the query and results and returns to Idle at once, bypassing the debounce window
func (s *Session) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.supersede()
	s.query = ""
	s.response = nil
	s.err = nil
	s.state = Idle
	s.unlockAndNotify()
}

// Cancel abandons pending or in-flight work, keeping the query. The session moves to Cancelled.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.closed || (s.state != PendingDebounce && s.state != InFlight) {
		s.mu.Unlock()
		return
	}
	wasInFlight := s.state == InFlight
	s.supersede()
	if !wasInFlight {
		s.state = Cancelled
		s.unlockAndNotify()
		return
	}
	s.mu.Unlock()
}

// Snapshot returns the current visible state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops the session and waits for any in-flight search to return
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancelInFlight()
	s.mu.Unlock()

	s.inflight.Wait()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:      s.state,
		Query:      s.query,
		Mode:       s.mode,
		Generation: s.generation,
		Response:   s.response,
		Err:        s.err,
	}
}

// notifyLocked delivers a snapshot while mu stays held
func (s *Session) notifyLocked() {
	if s.observer == nil {
		return
	}
	snap := s.snapshotLocked()
	s.notifyMu.Lock()
	s.observer(snap)
	s.notifyMu.Unlock()
}

// unlockAndNotify releases mu and then delivers the snapshot taken under it.
// notifyMu is acquired before mu is released so observers see transitions in order.
func (s *Session) unlockAndNotify() {
	if s.observer == nil {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.observer(snap)
	s.notifyMu.Unlock()
}
