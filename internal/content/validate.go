package content

import (
	"fmt"
	"strings"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/streak"
)

// Problem is one defect found in a day's content.
type Problem struct {
	SectionID string `json:"section_id,omitempty"`
	GameID    string `json:"game_id,omitempty"`
	Message   string `json:"message"`
}

func (p Problem) String() string {
	var where []string
	if p.SectionID != "" {
		where = append(where, "section "+p.SectionID)
	}
	if p.GameID != "" {
		where = append(where, "game "+p.GameID)
	}
	if len(where) == 0 {
		return p.Message
	}
	return strings.Join(where, "/") + ": " + p.Message
}

// Validate lists what is wrong with dc. Content with problems still loads: broken games
// are served as unavailable instead of failing the whole day.
func Validate(dc DailyContent) []Problem {
	var problems []Problem

	if _, err := streak.ParseDate(dc.Date); err != nil {
		problems = append(problems, Problem{Message: fmt.Sprintf("date %q must be %s", dc.Date, streak.DateLayout)})
	}
	if len(dc.Sections) == 0 {
		problems = append(problems, Problem{Message: "at least one section is required"})
	}

	sections := make(map[string]bool)
	games := make(map[string]bool)
	for i, s := range dc.Sections {
		if strings.TrimSpace(s.ID) == "" {
			problems = append(problems, Problem{Message: fmt.Sprintf("sections[%d].id is required", i)})
		} else if sections[s.ID] {
			problems = append(problems, Problem{SectionID: s.ID, Message: "duplicate section id"})
		}
		sections[s.ID] = true

		for _, def := range s.Games {
			if def.ID != "" && games[def.ID] {
				problems = append(problems, Problem{SectionID: s.ID, GameID: def.ID, Message: "duplicate game id"})
			}
			games[def.ID] = true

			if err := def.Validate(); err != nil {
				problems = append(problems, Problem{SectionID: s.ID, GameID: def.ID, Message: err.Error()})
			}
		}
	}
	return problems
}
