// Package play runs a learner's mini-games for a day and feeds their results into progress.
package play

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/content"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/game"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/progress"
)

// MaxDaysPerUser bounds how many day sessions are kept for one learner.
const MaxDaysPerUser = 3

// recordTimeout bounds the progress write triggered by a finished game.
const recordTimeout = 5 * time.Second

// ErrMissingUserID indicates a required user id was absent.
var ErrMissingUserID = errors.New("user id is required")

// Recorder receives finished game results.
type Recorder interface {
	RecordResult(ctx context.Context, userID, date, sectionID string, result game.Result) (progress.Outcome, error)
}

// Config tunes gameplay.
type Config struct {
	FlipBackDelay time.Duration
	Clock         game.Clock
	// Seed makes shuffles reproducible; zero seeds from the clock.
	Seed int64
}

// Service owns the game sessions of every learner.
type Service struct {
	content  content.Loader
	recorder Recorder
	logger   *slog.Logger
	metrics  *Metrics
	cfg      Config

	mu       sync.Mutex
	sessions map[string]map[string]*daySession   // userID -> date -> session
	reported map[string]map[string][]game.Result // userID -> date -> results, kept across eviction
	seq      int64
	tick     uint64
}

type daySession struct {
	session *game.Session
	day     content.DailyContent
	used    uint64
}

// NewService constructs a Service. metrics may be nil.
func NewService(loader content.Loader, recorder Recorder, logger *slog.Logger, metrics *Metrics, cfg Config) (*Service, error) {
	if loader == nil {
		return nil, errors.New("content loader is required")
	}
	if recorder == nil {
		return nil, errors.New("recorder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = game.NewSystemClock()
	}
	return &Service{
		content:  loader,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		sessions: make(map[string]map[string]*daySession),
		reported: make(map[string]map[string][]game.Result),
	}, nil
}

// SectionView is a content section with its rendered games.
type SectionView struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Text  string      `json:"text,omitempty"`
	Games []game.View `json:"games"`
}

// Day is the playable view of one date.
type Day struct {
	Date     string        `json:"date"`
	Title    string        `json:"title,omitempty"`
	Sections []SectionView `json:"sections"`
}

// Move is the answer to a submission.
type Move struct {
	Verdict game.Verdict `json:"verdict"`
	View    game.View    `json:"view"`
}

// Spin is the answer to a wheel spin.
type Spin struct {
	Outcome game.SpinOutcome `json:"outcome"`
	View    game.View        `json:"view"`
}

// Open returns the day's games for userID, starting a session on first use.
func (s *Service) Open(ctx context.Context, userID, date string) (Day, error) {
	ds, err := s.session(ctx, userID, date)
	if err != nil {
		return Day{}, err
	}
	return s.render(ds), nil
}

// Dates lists the days that have published content.
func (s *Service) Dates(ctx context.Context) ([]string, error) {
	return s.content.Dates(ctx)
}

// View renders a single game.
func (s *Service) View(ctx context.Context, userID, date, gameID string) (game.View, error) {
	ds, err := s.session(ctx, userID, date)
	if err != nil {
		return game.View{}, err
	}
	return ds.session.View(gameID)
}

// Submit forwards an answer to a game. Finished games return their stored verdict with
// Repeat set and report nothing new.
func (s *Service) Submit(ctx context.Context, userID, date, gameID string, in game.Input) (Move, error) {
	ds, err := s.session(ctx, userID, date)
	if err != nil {
		return Move{}, err
	}

	verdict, view, err := ds.session.Submit(gameID, in)
	if err != nil {
		if !errors.Is(err, game.ErrGameNotFound) {
			s.metrics.submissions.WithLabelValues(string(view.Kind), "rejected").Inc()
		}
		return Move{View: view}, err
	}

	outcome := "pending"
	switch {
	case verdict.Repeat:
		outcome = "repeat"
	case verdict.Done && verdict.Correct:
		outcome = "correct"
	case verdict.Done:
		outcome = "wrong"
	}
	s.metrics.submissions.WithLabelValues(string(view.Kind), outcome).Inc()
	return Move{Verdict: verdict, View: view}, nil
}

// SpinWheel spins the wheel game with gameID.
func (s *Service) SpinWheel(ctx context.Context, userID, date, gameID string) (Spin, error) {
	ds, err := s.session(ctx, userID, date)
	if err != nil {
		return Spin{}, err
	}
	out, view, err := ds.session.Spin(gameID)
	if err != nil {
		return Spin{View: view}, err
	}
	return Spin{Outcome: out, View: view}, nil
}

// Restart replaces a game with a fresh instance. A game that already reported keeps its
// reported result; the new instance only affects what is displayed.
func (s *Service) Restart(ctx context.Context, userID, date, gameID string) (game.View, error) {
	ds, err := s.session(ctx, userID, date)
	if err != nil {
		return game.View{}, err
	}
	for _, def := range ds.day.Definitions() {
		if def.ID == gameID {
			return ds.session.Start(def), nil
		}
	}
	return game.View{}, game.ErrGameNotFound
}

// Results lists the results already reported in the userID session for date.
func (s *Service) Results(ctx context.Context, userID, date string) ([]game.Result, error) {
	ds, err := s.session(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return ds.session.Results(), nil
}

func (s *Service) session(ctx context.Context, userID, date string) (*daySession, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	s.mu.Lock()
	if ds, ok := s.sessions[userID][date]; ok {
		s.touchLocked(ds)
		s.mu.Unlock()
		return ds, nil
	}
	s.mu.Unlock()

	day, err := s.content.Load(ctx, date)
	if err != nil {
		return nil, err
	}
	if problems := content.Validate(day); len(problems) > 0 {
		for _, p := range problems {
			s.logger.Warn("content problem", slog.String("date", date), slog.String("problem", p.String()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have opened the same day meanwhile.
	if ds, ok := s.sessions[userID][date]; ok {
		s.touchLocked(ds)
		return ds, nil
	}

	ds := &daySession{day: day}
	opts := game.Options{
		Clock:         s.cfg.Clock,
		Rand:          s.newRand(),
		FlipBackDelay: s.cfg.FlipBackDelay,
	}
	ds.session = game.NewSession(userID, date, opts, func(r game.Result) {
		s.record(userID, date, day, r)
	})
	// A day rebuilt after eviction must not report its finished games again.
	ds.session.Restore(s.reported[userID][date])

	for _, view := range ds.session.Load(day.Definitions()) {
		if view.Status == game.StatusUnavailable {
			s.metrics.unavailable.Inc()
		}
	}

	days, ok := s.sessions[userID]
	if !ok {
		days = make(map[string]*daySession)
		s.sessions[userID] = days
	}
	days[date] = ds
	s.touchLocked(ds)
	s.evictLocked(userID, date)
	s.updateGaugeLocked()
	return ds, nil
}

// record saves a finished game. Failures are logged; the learner keeps playing.
func (s *Service) record(userID, date string, day content.DailyContent, r game.Result) {
	s.mu.Lock()
	byDate, ok := s.reported[userID]
	if !ok {
		byDate = make(map[string][]game.Result)
		s.reported[userID] = byDate
	}
	byDate[date] = append(byDate[date], r)
	s.mu.Unlock()

	s.metrics.completions.WithLabelValues(string(r.Kind), strconv.FormatBool(r.Correct)).Inc()

	sectionID, ok := day.SectionOf(r.GameID)
	if !ok {
		s.logger.Error("finished game has no section", slog.String("gameId", r.GameID), slog.String("date", date))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if _, err := s.recorder.RecordResult(ctx, userID, date, sectionID, r); err != nil {
		s.metrics.recordFailures.Inc()
		s.logger.Error("record game result failed",
			slog.String("userId", userID),
			slog.String("date", date),
			slog.String("gameId", r.GameID),
			slog.Any("error", err))
	}
}

func (s *Service) render(ds *daySession) Day {
	views := make(map[string]game.View)
	for _, v := range ds.session.Views() {
		views[v.ID] = v
	}

	out := Day{Date: ds.day.Date, Title: ds.day.Title, Sections: make([]SectionView, 0, len(ds.day.Sections))}
	for _, sec := range ds.day.Sections {
		sv := SectionView{ID: sec.ID, Title: sec.Title, Text: sec.Text, Games: make([]game.View, 0, len(sec.Games))}
		for _, def := range sec.Games {
			if v, ok := views[def.ID]; ok {
				sv.Games = append(sv.Games, v)
			}
		}
		out.Sections = append(out.Sections, sv)
	}
	return out
}

func (s *Service) newRand() *rand.Rand {
	s.seq++
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + s.seq))
}

func (s *Service) touchLocked(ds *daySession) {
	s.tick++
	ds.used = s.tick
}

// evictLocked drops the least recently used days of userID until MaxDaysPerUser remain.
// keep is the day being returned and is never dropped.
func (s *Service) evictLocked(userID, keep string) {
	days := s.sessions[userID]
	for len(days) > MaxDaysPerUser {
		oldest := ""
		for date, ds := range days {
			if date == keep {
				continue
			}
			if oldest == "" || ds.used < days[oldest].used {
				oldest = date
			}
		}
		delete(days, oldest)
	}
}

func (s *Service) updateGaugeLocked() {
	s.metrics.sessions.Set(float64(s.countLocked()))
}

// SessionCount reports how many day sessions are held.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

func (s *Service) countLocked() int {
	total := 0
	for _, days := range s.sessions {
		total += len(days)
	}
	return total
}
