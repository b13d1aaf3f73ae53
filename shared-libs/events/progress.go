package events

import "time"

// Event types carried in Envelope.Type.
const (
	TypeGameCompleted   = "game.completed"
	TypeSectionComplete = "section.completed"
	TypeProgressReset   = "progress.reset"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// GameCompleted is emitted when a mini-game reports its single result.
type GameCompleted struct {
	Date          string `json:"date"`
	SectionID     string `json:"section_id"`
	GameID        string `json:"game_id"`
	Kind          string `json:"kind"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"points_awarded"`
}

// SectionCompleted is emitted the first time a section is finished on a date. The
// notification collaborator uses the streak figures for reminder and share texts.
type SectionCompleted struct {
	Date          string `json:"date"`
	SectionID     string `json:"section_id"`
	CurrentStreak int    `json:"current_streak"`
	MaxStreak     int    `json:"max_streak"`
	Level         string `json:"level"`
	Score         int    `json:"score"`
	Stars         int    `json:"stars"`
}

// ProgressReset is emitted when a user wipes their progress.
type ProgressReset struct {
	ResetAt time.Time `json:"reset_at"`
}
