// Package game implements the scoring state machines behind the daily mini-games.
//
// Every game instance moves from unanswered to answered exactly once and reports a
// single Result through its completion callback. Instances are not safe for
// concurrent use; Session serializes access.
package game

import (
	"errors"
	"math/rand"
	"time"
)

// Kind names a mini-game variant.
type Kind string

const (
	KindQuiz      Kind = "quiz"
	KindTrueFalse Kind = "truefalse"
	KindMatch     Kind = "match"
	KindMemory    Kind = "memory"
	KindAnagram   Kind = "anagram"
	KindWheel     Kind = "wheel"
)

// Status is the lifecycle state reported in a View.
type Status string

const (
	StatusUnanswered  Status = "unanswered"
	StatusAnswered    Status = "answered"
	StatusUnavailable Status = "unavailable"
)

// DefaultPoints is awarded by a correct game whose definition does not set Points.
const DefaultPoints = 10

// DefaultFlipBackDelay is how long a mismatched memory pair stays face up.
const DefaultFlipBackDelay = time.Second

var (
	// ErrInvalidInput indicates the submission does not fit the game (bad index, missing field).
	ErrInvalidInput = errors.New("invalid game input")
	// ErrNotSpun indicates a wheel answer arrived before a spin selected a segment.
	ErrNotSpun = errors.New("wheel has not been spun")
	// ErrAnswerPending indicates a wheel spin while the selected question is unanswered.
	ErrAnswerPending = errors.New("current segment must be answered first")
	// ErrInvalidDefinition indicates content that cannot be played.
	ErrInvalidDefinition = errors.New("invalid game definition")
	// ErrUnsupported indicates an operation the game kind does not offer.
	ErrUnsupported = errors.New("operation not supported by this game")
)

// Input carries one user interaction. Only the field relevant to the game kind is read.
type Input struct {
	// Choice is a quiz option, memory card or wheel answer index.
	Choice *int `json:"choice,omitempty"`
	// Value is a true/false answer.
	Value *bool `json:"value,omitempty"`
	// Left and Right select one item from each column of a match game.
	Left  *int `json:"left,omitempty"`
	Right *int `json:"right,omitempty"`
	// Word is the assembled anagram.
	Word string `json:"word,omitempty"`
}

// Choose builds an Input selecting index i.
func Choose(i int) Input { return Input{Choice: &i} }

// Answer builds a true/false Input.
func Answer(v bool) Input { return Input{Value: &v} }

// Pair builds a match Input.
func Pair(left, right int) Input { return Input{Left: &left, Right: &right} }

// Spell builds an anagram Input.
func Spell(word string) Input { return Input{Word: word} }

// Verdict is the outcome of a single interaction.
type Verdict struct {
	Correct bool `json:"correct"`
	Points  int  `json:"points"`
	Done    bool `json:"done"`
	// Repeat is set when the instance was already answered and the input was ignored.
	Repeat bool `json:"repeat,omitempty"`
}

// Result is reported once per instance when it reaches the answered state.
type Result struct {
	GameID        string `json:"game_id"`
	Kind          Kind   `json:"kind"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"points_awarded"`
	Attempts      int    `json:"attempts"`
}

// CompletionFunc receives the Result of a finished game.
type CompletionFunc func(Result)

// MiniGame is implemented by every game variant.
type MiniGame interface {
	ID() string
	Kind() Kind
	Render() View
	Submit(in Input) (Verdict, error)
	Done() bool
}

// Spinner is implemented by games that select their next question at random.
type Spinner interface {
	Spin() (SpinOutcome, error)
}

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock implementation backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Options wires collaborators shared by every game of a session.
type Options struct {
	Clock         Clock
	Rand          *rand.Rand
	FlipBackDelay time.Duration
	OnComplete    CompletionFunc
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = NewSystemClock()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.FlipBackDelay <= 0 {
		o.FlipBackDelay = DefaultFlipBackDelay
	}
	return o
}

// completion is the shared Unanswered → Answered machine embedded by every variant.
type completion struct {
	id         string
	kind       Kind
	onComplete CompletionFunc
	done       bool
	result     Result
}

func (c *completion) ID() string { return c.id }

func (c *completion) Kind() Kind { return c.kind }

func (c *completion) Done() bool { return c.done }

func (c *completion) status() Status {
	if c.done {
		return StatusAnswered
	}
	return StatusUnanswered
}

// finish moves the instance to answered and fires the callback. Later calls return the
// stored verdict without firing again.
func (c *completion) finish(correct bool, points, attempts int) Verdict {
	if c.done {
		return c.final()
	}
	if points < 0 {
		points = 0
	}
	c.done = true
	c.result = Result{
		GameID:        c.id,
		Kind:          c.kind,
		Correct:       correct,
		PointsAwarded: points,
		Attempts:      attempts,
	}
	if c.onComplete != nil {
		c.onComplete(c.result)
	}
	return Verdict{Correct: correct, Points: points, Done: true}
}

func (c *completion) final() Verdict {
	return Verdict{
		Correct: c.result.Correct,
		Points:  c.result.PointsAwarded,
		Done:    true,
		Repeat:  true,
	}
}

// Outcome returns the reported Result, if any.
func (c *completion) Outcome() (Result, bool) {
	return c.result, c.done
}
