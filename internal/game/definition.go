package game

import (
	"fmt"
	"strings"
)

// Definition is the content record for one game as published by the content source.
type Definition struct {
	ID       string              `json:"id" yaml:"id"`
	Kind     Kind                `json:"kind" yaml:"kind"`
	Title    string              `json:"title,omitempty" yaml:"title"`
	Prompt   string              `json:"prompt,omitempty" yaml:"prompt"`
	Options  []string            `json:"options,omitempty" yaml:"options"`
	Correct  int                 `json:"correct,omitempty" yaml:"correct"`
	Answer   *bool               `json:"answer,omitempty" yaml:"answer"`
	Pairs    []PairDefinition    `json:"pairs,omitempty" yaml:"pairs"`
	Word     string              `json:"word,omitempty" yaml:"word"`
	Hint     string              `json:"hint,omitempty" yaml:"hint"`
	Segments []SegmentDefinition `json:"segments,omitempty" yaml:"segments"`
	Points   int                 `json:"points,omitempty" yaml:"points"`
}

// PairDefinition is one match or memory pair. Memory games show Left on both cards when
// Right is empty.
type PairDefinition struct {
	Left  string `json:"left" yaml:"left"`
	Right string `json:"right,omitempty" yaml:"right"`
}

// SegmentDefinition is one wheel segment.
type SegmentDefinition struct {
	Kind    SegmentKind `json:"kind" yaml:"kind"`
	Label   string      `json:"label,omitempty" yaml:"label"`
	Prompt  string      `json:"prompt,omitempty" yaml:"prompt"`
	Options []string    `json:"options,omitempty" yaml:"options"`
	Correct int         `json:"correct,omitempty" yaml:"correct"`
	Points  int         `json:"points,omitempty" yaml:"points"`
}

func (d Definition) points() int {
	if d.Points > 0 {
		return d.Points
	}
	return DefaultPoints
}

// Validate reports why a definition cannot be played. A nil error means New builds a
// playable game.
func (d Definition) Validate() error {
	var problems []string

	if strings.TrimSpace(d.ID) == "" {
		problems = append(problems, "id is required")
	}

	switch d.Kind {
	case KindQuiz:
		problems = append(problems, validateChoices("options", d.Options, d.Correct)...)
	case KindTrueFalse:
		if d.Answer == nil {
			problems = append(problems, "answer is required")
		}
	case KindMatch, KindMemory:
		if len(d.Pairs) < 2 {
			problems = append(problems, "at least 2 pairs are required")
		}
		for i, p := range d.Pairs {
			if strings.TrimSpace(p.Left) == "" {
				problems = append(problems, fmt.Sprintf("pairs[%d].left is required", i))
			}
			if d.Kind == KindMatch && strings.TrimSpace(p.Right) == "" {
				problems = append(problems, fmt.Sprintf("pairs[%d].right is required", i))
			}
		}
	case KindAnagram:
		if len([]rune(strings.TrimSpace(d.Word))) < 2 {
			problems = append(problems, "word must have at least 2 letters")
		}
	case KindWheel:
		questions := 0
		for i, s := range d.Segments {
			switch s.Kind {
			case SegmentQuestion:
				questions++
				problems = append(problems, validateChoices(fmt.Sprintf("segments[%d].options", i), s.Options, s.Correct)...)
			case SegmentBankrupt, SegmentDouble, SegmentBonus:
			default:
				problems = append(problems, fmt.Sprintf("segments[%d].kind %q is unknown", i, s.Kind))
			}
		}
		if questions == 0 {
			problems = append(problems, "at least one question segment is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("kind %q is unknown", d.Kind))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(problems, "; "))
	}
	return nil
}

func validateChoices(field string, options []string, correct int) []string {
	if len(options) == 0 {
		return []string{field + " must not be empty"}
	}
	if correct < 0 || correct >= len(options) {
		return []string{fmt.Sprintf("%s correct index %d out of range", field, correct)}
	}
	return nil
}

// New builds the game described by def. A definition that fails Validate yields an
// Unavailable game instead of an error.
func New(def Definition, opts Options) MiniGame {
	opts = opts.withDefaults()
	if err := def.Validate(); err != nil {
		return newUnavailable(def, err)
	}

	base := completion{id: def.ID, kind: def.Kind, onComplete: opts.OnComplete}
	switch def.Kind {
	case KindQuiz:
		return newQuiz(base, def)
	case KindTrueFalse:
		return newTrueFalse(base, def)
	case KindMatch:
		return newMatch(base, def, opts.Rand)
	case KindMemory:
		return newMemory(base, def, opts)
	case KindAnagram:
		return newAnagram(base, def, opts.Rand)
	case KindWheel:
		return newWheel(base, def, opts.Rand)
	default:
		return newUnavailable(def, ErrInvalidDefinition)
	}
}
