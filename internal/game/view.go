package game

// View is the client-facing snapshot of a game. Fields that do not apply to the
// game kind are omitted.
type View struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Status  Status `json:"status"`
	Title   string `json:"title,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Message string `json:"message,omitempty"`

	Options []string `json:"options,omitempty"`

	Left    []string `json:"left,omitempty"`
	Right   []string `json:"right,omitempty"`
	Matched []int    `json:"matched,omitempty"`

	Cards []CardView `json:"cards,omitempty"`

	Letters []string `json:"letters,omitempty"`
	Hint    string   `json:"hint,omitempty"`

	Segments []SegmentView `json:"segments,omitempty"`
	Current  *int          `json:"current,omitempty"`
	Score    int           `json:"score"`

	Result *Result `json:"result,omitempty"`
}

// CardView is one memory card. Face is empty while the card is hidden.
type CardView struct {
	Index   int    `json:"index"`
	Face    string `json:"face,omitempty"`
	Open    bool   `json:"open"`
	Matched bool   `json:"matched"`
}

// SegmentView is one wheel segment.
type SegmentView struct {
	Index    int         `json:"index"`
	Kind     SegmentKind `json:"kind"`
	Label    string      `json:"label"`
	Points   int         `json:"points"`
	Answered bool        `json:"answered"`
}

func (c *completion) baseView(title, prompt string) View {
	v := View{
		ID:     c.id,
		Kind:   c.kind,
		Status: c.status(),
		Title:  title,
		Prompt: prompt,
	}
	if c.done {
		r := c.result
		v.Result = &r
	}
	return v
}
