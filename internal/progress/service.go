package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/achievement"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/game"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/streak"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/events"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/pubsub"
)

// StarsPerWin is awarded for every section completed with a correct result.
const StarsPerWin = 1

// SupportedLanguages lists the interface languages a learner can pick.
var SupportedLanguages = []string{"ru", "en", "he", "uk"}

var errUnchanged = errors.New("progress unchanged")

// Service orchestrates the domain operations for learner progress.
type Service struct {
	repo      Repository
	clock     Clock
	ids       IDGenerator
	publisher pubsub.Publisher
	logger    *slog.Logger
}

// NewService constructs a Service instance with the provided collaborators. A nil publisher
// drops events.
func NewService(repo Repository, clock Clock, ids IDGenerator, publisher pubsub.Publisher, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	if publisher == nil {
		publisher = pubsub.NewNoopPublisher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock, ids: ids, publisher: publisher, logger: logger}, nil
}

// Today returns the current date key in the service clock's timezone.
func (s *Service) Today() string {
	return streak.DateKey(s.clock.Now())
}

// Summary is everything a client shows on the progress screen.
type Summary struct {
	UserID         string                    `json:"user_id"`
	Date           string                    `json:"date"`
	Score          int                       `json:"score"`
	Stars          int                       `json:"stars"`
	Streak         streak.Stats              `json:"streak"`
	Level          achievement.LevelProgress `json:"level"`
	Badges         []achievement.Badge       `json:"badges"`
	WeeklyBadges   []achievement.WeeklyBadge `json:"weekly_badges"`
	CompletedToday []string                  `json:"completed_today"`
	TotalDays      int                       `json:"total_days"`
	Settings       Settings                  `json:"settings"`
}

// Summarize derives the Summary of rec as of now. The level follows the current streak
// while badges use the ratcheted maximum so they stay unlocked after a break.
func Summarize(rec Record, now time.Time) Summary {
	stats := streak.Compute(rec.Completions, rec.MaxStreak, now)
	dates := rec.Completions.Dates()
	today := streak.DateKey(now)

	return Summary{
		UserID:         rec.UserID,
		Date:           today,
		Score:          rec.Score,
		Stars:          rec.Stars,
		Streak:         stats,
		Level:          achievement.Progress(stats.Current),
		Badges:         achievement.Badges(stats.Max),
		WeeklyBadges:   achievement.WeeklyBadges(dates),
		CompletedToday: rec.Completions.Sections(today),
		TotalDays:      len(dates),
		Settings:       rec.Settings,
	}
}

// Summary computes the progress summary of userID. Unknown learners get an empty summary.
func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	rec, err := s.loadOrNew(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rec, s.clock.Now()), nil
}

// Streak returns only the streak figures of userID.
func (s *Service) Streak(ctx context.Context, userID string) (streak.Stats, error) {
	rec, err := s.loadOrNew(ctx, userID)
	if err != nil {
		return streak.Stats{}, err
	}
	return streak.Compute(rec.Completions, rec.MaxStreak, s.clock.Now()), nil
}

// Outcome reports what RecordResult changed.
type Outcome struct {
	Added   bool    `json:"added"`
	Summary Summary `json:"summary"`
}

// RecordResult stores a game result for section on date. A correct result marks the
// section complete for the streak and credits the game's points and a star once per game
// id and date, so repeated reports never double-count.
func (s *Service) RecordResult(ctx context.Context, userID, date, sectionID string, result game.Result) (Outcome, error) {
	if userID == "" {
		return Outcome{}, ErrMissingUserID
	}
	if _, err := streak.ParseDate(date); err != nil {
		return Outcome{}, fmt.Errorf("%w: date must be %s", ErrInvalidInput, streak.DateLayout)
	}
	if strings.TrimSpace(sectionID) == "" {
		return Outcome{}, fmt.Errorf("%w: section id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(result.GameID) == "" {
		return Outcome{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	s.publish(ctx, userID, events.TypeGameCompleted, events.GameCompleted{
		Date:          date,
		SectionID:     sectionID,
		GameID:        result.GameID,
		Kind:          string(result.Kind),
		Correct:       result.Correct,
		PointsAwarded: result.PointsAwarded,
	})

	if !result.Correct {
		summary, err := s.Summary(ctx, userID)
		return Outcome{Summary: summary}, err
	}

	now := s.clock.Now()
	sectionAdded := false
	rec, err := s.repo.Update(ctx, userID, func(rec *Record) error {
		if rec.CreditedGames == nil {
			rec.CreditedGames = streak.CompletionMap{}
		}
		sectionAdded = rec.Completions.Add(date, sectionID)
		credited := rec.CreditedGames.Add(date, result.GameID)
		if !sectionAdded && !credited {
			return errUnchanged
		}
		if credited {
			rec.Score += result.PointsAwarded
			rec.Stars += StarsPerWin
		}
		rec.MaxStreak = streak.MaxWithHistory(rec.MaxStreak, rec.Completions, now)
		rec.UpdatedAt = now.UTC()
		return nil
	})
	if errors.Is(err, errUnchanged) {
		summary, err := s.Summary(ctx, userID)
		return Outcome{Summary: summary}, err
	}
	if err != nil {
		return Outcome{}, err
	}

	summary := Summarize(rec, now)
	if sectionAdded {
		s.publish(ctx, userID, events.TypeSectionComplete, events.SectionCompleted{
			Date:          date,
			SectionID:     sectionID,
			CurrentStreak: summary.Streak.Current,
			MaxStreak:     summary.Streak.Max,
			Level:         summary.Level.Level.Name,
			Score:         summary.Score,
			Stars:         summary.Stars,
		})
	}
	return Outcome{Added: true, Summary: summary}, nil
}

// Load returns the stored record of userID or ErrNotFound.
func (s *Service) Load(ctx context.Context, userID string) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}
	return s.repo.Load(ctx, userID)
}

// Save merges a record pushed by a client into the stored one. Completions are united and
// counters never go down.
func (s *Service) Save(ctx context.Context, incoming Record) (Record, error) {
	if err := validateRecord(incoming); err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	now := s.clock.Now()
	return s.repo.Update(ctx, incoming.UserID, func(rec *Record) error {
		merged := Merge(*rec, incoming)
		merged.UserID = incoming.UserID
		merged.MaxStreak = streak.MaxWithHistory(merged.MaxStreak, merged.Completions, now)
		merged.UpdatedAt = now.UTC()
		*rec = merged
		return nil
	})
}

// Reset wipes the progress of userID. Resetting an unknown learner is not an error.
func (s *Service) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if err := s.repo.Delete(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	s.publish(ctx, userID, events.TypeProgressReset, events.ProgressReset{ResetAt: s.clock.Now().UTC()})
	return nil
}

// Sync reconciles the local and cloud copies of userID's progress.
func (s *Service) Sync(ctx context.Context, userID string) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}
	syncer, ok := s.repo.(Syncer)
	if !ok {
		return Record{}, ErrSyncDisabled
	}
	return syncer.Sync(ctx, userID)
}

// SettingsPatch carries the settings fields a client wants to change.
type SettingsPatch struct {
	Language      *string `json:"language"`
	Voice         *bool   `json:"voice"`
	Notifications *bool   `json:"notifications"`
	ReminderHour  *int    `json:"reminder_hour"`
}

// Validate ensures the patch fields meet the domain constraints.
func (p SettingsPatch) Validate() error {
	var problems []string
	if p.Language != nil && !isSupportedLanguage(*p.Language) {
		problems = append(problems, fmt.Sprintf("language must be one of: %s", strings.Join(SupportedLanguages, ", ")))
	}
	if p.ReminderHour != nil && (*p.ReminderHour < 0 || *p.ReminderHour > 23) {
		problems = append(problems, "reminder_hour must be between 0 and 23")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// UpdateSettings applies patch to the settings of userID.
func (s *Service) UpdateSettings(ctx context.Context, userID string, patch SettingsPatch) (Settings, error) {
	if userID == "" {
		return Settings{}, ErrMissingUserID
	}
	if err := patch.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	now := s.clock.Now()
	rec, err := s.repo.Update(ctx, userID, func(rec *Record) error {
		if patch.Language != nil {
			rec.Settings.Language = *patch.Language
		}
		if patch.Voice != nil {
			rec.Settings.Voice = *patch.Voice
		}
		if patch.Notifications != nil {
			rec.Settings.Notifications = *patch.Notifications
		}
		if patch.ReminderHour != nil {
			rec.Settings.ReminderHour = *patch.ReminderHour
		}
		rec.UpdatedAt = now.UTC()
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return rec.Settings, nil
}

// Share is the text handed to the sharing collaborator.
type Share struct {
	Text   string `json:"text"`
	Streak int    `json:"streak"`
	Level  string `json:"level"`
	Badges int    `json:"badges"`
}

// ShareText builds the share message for userID from the current streak, level and badges.
func (s *Service) ShareText(ctx context.Context, userID string) (Share, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return Share{}, err
	}

	unlocked := 0
	for _, b := range summary.Badges {
		if b.Unlocked {
			unlocked++
		}
	}
	level := summary.Level.Level

	return Share{
		Text: fmt.Sprintf("🔥 Я учу Хитас %d %s подряд! Мой уровень: %s %s. Значков: %d, звёзд: %d.",
			summary.Streak.Current, pluralDays(summary.Streak.Current), level.Icon, level.Name, unlocked, summary.Stars),
		Streak: summary.Streak.Current,
		Level:  level.Name,
		Badges: unlocked,
	}, nil
}

func (s *Service) loadOrNew(ctx context.Context, userID string) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}
	rec, err := s.repo.Load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return NewRecord(userID), nil
	}
	return rec, err
}

// publish sends an event; failures are logged since gameplay must not depend on delivery.
func (s *Service) publish(ctx context.Context, userID, eventType string, payload any) {
	err := s.publisher.Publish(ctx, pubsub.TopicProgressEvents, events.Envelope{
		ID:         s.ids.NewID(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: s.clock.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		s.logger.Warn("publish progress event failed",
			slog.String("type", eventType),
			slog.String("userId", userID),
			slog.Any("error", err))
	}
}

func validateRecord(rec Record) error {
	var problems []string
	if rec.UserID == "" {
		problems = append(problems, "user_id is required")
	}
	if rec.Score < 0 || rec.Stars < 0 || rec.MaxStreak < 0 {
		problems = append(problems, "score, stars and max_streak must be non-negative")
	}
	for date := range rec.Completions {
		if _, err := streak.ParseDate(date); err != nil {
			problems = append(problems, fmt.Sprintf("completion date %q must be %s", date, streak.DateLayout))
			break
		}
	}
	if rec.Settings.Language != "" && !isSupportedLanguage(rec.Settings.Language) {
		problems = append(problems, fmt.Sprintf("language must be one of: %s", strings.Join(SupportedLanguages, ", ")))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func isSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// pluralDays picks the Russian plural form of "day" for n.
func pluralDays(n int) string {
	mod100 := n % 100
	switch mod10 := n % 10; {
	case mod10 == 1 && mod100 != 11:
		return "день"
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return "дня"
	default:
		return "дней"
	}
}
