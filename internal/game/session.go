package game

import (
	"errors"
	"sync"
)

// ErrGameNotFound indicates the session holds no game with the requested id.
var ErrGameNotFound = errors.New("game not found in session")

// Session owns the game instances one learner is playing for one day. It replaces
// process-wide game state: every handler that needs a game goes through its session.
//
// Results are forwarded to the aggregator at most once per game id, outside the
// session lock.
type Session struct {
	UserID string
	Date   string

	mu         sync.Mutex
	opts       Options
	aggregate  CompletionFunc
	games      map[string]MiniGame
	generation map[string]int
	order      []string
	reported   map[string]Result
	pending    []Result
}

// NewSession creates an empty session. aggregate receives each game's Result once.
func NewSession(userID, date string, opts Options, aggregate CompletionFunc) *Session {
	return &Session{
		UserID:     userID,
		Date:       date,
		opts:       opts.withDefaults(),
		aggregate:  aggregate,
		games:      make(map[string]MiniGame),
		generation: make(map[string]int),
		reported:   make(map[string]Result),
	}
}

// Restore marks results as already reported, so a session rebuilt for the same day never
// forwards those games again. Their instances still start fresh and may be replayed.
func (s *Session) Restore(results []Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		s.reported[r.GameID] = r
	}
}

// Start builds a game from def. A game already running under the same id is replaced
// and any callback it still fires is ignored.
func (s *Session) Start(def Definition) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(def).Render()
}

// Load starts every definition in order and returns their views.
func (s *Session) Load(defs []Definition) []View {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]View, 0, len(defs))
	for _, def := range defs {
		views = append(views, s.startLocked(def).Render())
	}
	return views
}

func (s *Session) startLocked(def Definition) MiniGame {
	s.generation[def.ID]++
	gen := s.generation[def.ID]

	opts := s.opts
	opts.OnComplete = func(r Result) {
		if s.generation[r.GameID] != gen {
			return
		}
		if _, seen := s.reported[r.GameID]; seen {
			return
		}
		s.reported[r.GameID] = r
		s.pending = append(s.pending, r)
	}

	g := New(def, opts)
	if _, exists := s.games[def.ID]; !exists {
		s.order = append(s.order, def.ID)
	}
	s.games[def.ID] = g
	return g
}

// Submit forwards in to the game with gameID.
func (s *Session) Submit(gameID string, in Input) (Verdict, View, error) {
	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return Verdict{}, View{}, ErrGameNotFound
	}
	verdict, err := g.Submit(in)
	view := g.Render()
	results := s.drainLocked()
	s.mu.Unlock()

	s.forward(results)
	return verdict, view, err
}

// Spin spins the wheel game with gameID.
func (s *Session) Spin(gameID string) (SpinOutcome, View, error) {
	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return SpinOutcome{}, View{}, ErrGameNotFound
	}
	spinner, ok := g.(Spinner)
	if !ok {
		s.mu.Unlock()
		return SpinOutcome{}, View{}, ErrUnsupported
	}
	out, err := spinner.Spin()
	view := g.Render()
	results := s.drainLocked()
	s.mu.Unlock()

	s.forward(results)
	return out, view, err
}

// View renders the game with gameID.
func (s *Session) View(gameID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return View{}, ErrGameNotFound
	}
	return g.Render(), nil
}

// Views renders every game in the order they were started.
func (s *Session) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]View, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, s.games[id].Render())
	}
	return views
}

// Results returns every Result reported so far, in start order.
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, 0, len(s.reported))
	for _, id := range s.order {
		if r, ok := s.reported[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *Session) drainLocked() []Result {
	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = nil
	return out
}

func (s *Session) forward(results []Result) {
	if s.aggregate == nil {
		return
	}
	for _, r := range results {
		s.aggregate(r)
	}
}
