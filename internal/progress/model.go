package progress

import (
	"context"
	"time"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/streak"
)

// Settings are the learner preferences stored next to their progress.
type Settings struct {
	Language      string `json:"language" firestore:"language"`
	Voice         bool   `json:"voice" firestore:"voice"`
	Notifications bool   `json:"notifications" firestore:"notifications"`
	ReminderHour  int    `json:"reminder_hour" firestore:"reminder_hour"`
}

// DefaultSettings is what a new learner starts with.
func DefaultSettings() Settings {
	return Settings{Language: "ru", Voice: true, ReminderHour: 18}
}

// Record is the persisted progress of one learner.
type Record struct {
	UserID        string               `json:"user_id"`
	Score         int                  `json:"score"`
	Stars         int                  `json:"stars"`
	Completions   streak.CompletionMap `json:"completions"`
	// CreditedGames lists, per date, the games whose points were already added to Score.
	CreditedGames streak.CompletionMap `json:"credited_games,omitempty"`
	MaxStreak     int                  `json:"max_streak"`
	Settings      Settings             `json:"settings"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewRecord returns an empty record for userID.
func NewRecord(userID string) Record {
	return Record{
		UserID:        userID,
		Completions:   streak.CompletionMap{},
		CreditedGames: streak.CompletionMap{},
		Settings:      DefaultSettings(),
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Completions = r.Completions.Clone()
	out.CreditedGames = r.CreditedGames.Clone()
	return out
}

// Merge combines two copies of the same learner's progress: completion and credited-game
// maps are united and the larger score, stars and max streak win. Settings come from the
// copy updated last, with ties going to b; empty settings never replace stored ones.
func Merge(a, b Record) Record {
	out := a.Clone()
	out.Completions.Merge(b.Completions)
	out.CreditedGames.Merge(b.CreditedGames)
	out.Score = max(a.Score, b.Score)
	out.Stars = max(a.Stars, b.Stars)
	out.MaxStreak = max(a.MaxStreak, b.MaxStreak)
	if !b.UpdatedAt.Before(a.UpdatedAt) {
		if b.Settings != (Settings{}) {
			out.Settings = b.Settings
		}
		out.UpdatedAt = b.UpdatedAt
	}
	return out
}

// UpdateFunc mutates a record inside Repository.Update. Returning an error aborts the write.
type UpdateFunc func(rec *Record) error

// Repository encapsulates persistence for progress records.
type Repository interface {
	Load(ctx context.Context, userID string) (Record, error)
	Save(ctx context.Context, rec Record) error
	// Update applies fn atomically to the stored record, starting from NewRecord when
	// none exists, and returns the stored result.
	Update(ctx context.Context, userID string, fn UpdateFunc) (Record, error)
	Delete(ctx context.Context, userID string) error
}

// Syncer is implemented by repositories that mirror progress to the cloud.
type Syncer interface {
	Sync(ctx context.Context, userID string) (Record, error)
}

// Clock delivers the current time in the learner's timezone; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for published events.
type IDGenerator interface {
	NewID() string
}
