package game

import "math/rand"

// SegmentKind identifies what landing on a wheel segment does.
type SegmentKind string

const (
	SegmentQuestion SegmentKind = "question"
	SegmentBankrupt SegmentKind = "bankrupt"
	SegmentDouble   SegmentKind = "double"
	SegmentBonus    SegmentKind = "bonus"
)

type segment struct {
	SegmentDefinition
	answered bool
}

// SpinOutcome describes the segment a spin landed on and the running score after any
// modifier was applied.
type SpinOutcome struct {
	Segment int         `json:"segment"`
	Kind    SegmentKind `json:"kind"`
	Label   string      `json:"label,omitempty"`
	Prompt  string      `json:"prompt,omitempty"`
	Options []string    `json:"options,omitempty"`
	Points  int         `json:"points"`
	Score   int         `json:"score"`
	Done    bool        `json:"done"`
}

// Wheel is a wheel of fortune. Each spin lands on an unanswered question or a special
// segment; questions are never drawn twice, specials change the running score at once.
// The game completes when every question has been answered and awards the final score.
type Wheel struct {
	completion
	title    string
	prompt   string
	segments []segment
	rng      *rand.Rand
	current  int
	score    int
	attempts int
}

func newWheel(base completion, def Definition, rng *rand.Rand) *Wheel {
	segs := make([]segment, len(def.Segments))
	for i, s := range def.Segments {
		if s.Points <= 0 && s.Kind != SegmentBankrupt && s.Kind != SegmentDouble {
			s.Points = DefaultPoints
		}
		segs[i] = segment{SegmentDefinition: s}
	}
	return &Wheel{
		completion: base,
		title:      def.Title,
		prompt:     def.Prompt,
		segments:   segs,
		rng:        rng,
		current:    -1,
	}
}

func (w *Wheel) Render() View {
	v := w.baseView(w.title, w.prompt)
	v.Score = w.score
	v.Segments = make([]SegmentView, len(w.segments))
	for i, s := range w.segments {
		label := s.Label
		if label == "" {
			label = string(s.Kind)
		}
		v.Segments[i] = SegmentView{Index: i, Kind: s.Kind, Label: label, Points: s.Points, Answered: s.answered}
	}
	if w.current >= 0 {
		cur := w.current
		v.Current = &cur
		v.Options = append([]string(nil), w.segments[cur].Options...)
		v.Prompt = w.segments[cur].Prompt
	}
	return v
}

// Spin selects the next segment uniformly among unanswered questions and specials.
func (w *Wheel) Spin() (SpinOutcome, error) {
	if w.done {
		return SpinOutcome{Segment: -1, Score: w.score, Done: true}, nil
	}
	if w.current >= 0 {
		return SpinOutcome{}, ErrAnswerPending
	}

	pool := w.pool()
	idx := pool[w.rng.Intn(len(pool))]
	s := w.segments[idx]

	switch s.Kind {
	case SegmentBankrupt:
		w.score = 0
	case SegmentDouble:
		w.score *= 2
	case SegmentBonus:
		w.score += s.Points
	default:
		w.current = idx
	}

	out := SpinOutcome{
		Segment: idx,
		Kind:    s.Kind,
		Label:   s.Label,
		Points:  s.Points,
		Score:   w.score,
	}
	if s.Kind == SegmentQuestion {
		out.Prompt = s.Prompt
		out.Options = append([]string(nil), s.Options...)
	}
	return out, nil
}

// Submit answers the question selected by the last spin. The returned Verdict always
// describes this answer, even when it finishes the game; the reported Result instead
// counts as correct when the total score is above zero, so the two may disagree.
func (w *Wheel) Submit(in Input) (Verdict, error) {
	if w.done {
		return w.final(), nil
	}
	if w.current < 0 {
		return Verdict{}, ErrNotSpun
	}
	s := &w.segments[w.current]
	if in.Choice == nil || *in.Choice < 0 || *in.Choice >= len(s.Options) {
		return Verdict{}, ErrInvalidInput
	}

	w.attempts++
	s.answered = true
	w.current = -1

	gained := 0
	correct := *in.Choice == s.Correct
	if correct {
		gained = s.Points
		w.score += gained
	}

	if w.remainingQuestions() == 0 {
		final := w.finish(w.score > 0, w.score, w.attempts)
		final.Correct = correct
		final.Points = gained
		return final, nil
	}
	return Verdict{Correct: correct, Points: gained}, nil
}

func (w *Wheel) pool() []int {
	pool := make([]int, 0, len(w.segments))
	for i, s := range w.segments {
		if s.Kind == SegmentQuestion && s.answered {
			continue
		}
		pool = append(pool, i)
	}
	return pool
}

func (w *Wheel) remainingQuestions() int {
	n := 0
	for _, s := range w.segments {
		if s.Kind == SegmentQuestion && !s.answered {
			n++
		}
	}
	return n
}
