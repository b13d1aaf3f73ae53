package game

import "math/rand"

// Match shows two columns; the player links each left item to its partner on the right.
// The game completes only once every pair is linked.
type Match struct {
	completion
	title      string
	prompt     string
	pairs      []PairDefinition
	rightOrder []int // displayed right index -> pair index
	matched    map[int]bool
	attempts   int
	points     int
}

func newMatch(base completion, def Definition, rng *rand.Rand) *Match {
	order := rng.Perm(len(def.Pairs))
	return &Match{
		completion: base,
		title:      def.Title,
		prompt:     def.Prompt,
		pairs:      append([]PairDefinition(nil), def.Pairs...),
		rightOrder: order,
		matched:    make(map[int]bool, len(def.Pairs)),
		points:     def.points(),
	}
}

func (m *Match) Render() View {
	v := m.baseView(m.title, m.prompt)
	v.Left = make([]string, len(m.pairs))
	v.Right = make([]string, len(m.pairs))
	for i, p := range m.pairs {
		v.Left[i] = p.Left
	}
	for shown, pairIdx := range m.rightOrder {
		v.Right[shown] = m.pairs[pairIdx].Right
	}
	for i := range m.pairs {
		if m.matched[i] {
			v.Matched = append(v.Matched, i)
		}
	}
	if m.done {
		v.Score = m.result.PointsAwarded
	}
	return v
}

// Submit links left item Left with displayed right item Right.
func (m *Match) Submit(in Input) (Verdict, error) {
	if m.done {
		return m.final(), nil
	}
	if in.Left == nil || in.Right == nil {
		return Verdict{}, ErrInvalidInput
	}
	left, right := *in.Left, *in.Right
	if left < 0 || left >= len(m.pairs) || right < 0 || right >= len(m.rightOrder) {
		return Verdict{}, ErrInvalidInput
	}
	if m.matched[left] || m.matched[m.rightOrder[right]] {
		return Verdict{}, ErrInvalidInput
	}

	m.attempts++
	if m.rightOrder[right] != left {
		return Verdict{Correct: false}, nil
	}

	m.matched[left] = true
	if len(m.matched) == len(m.pairs) {
		return m.finish(true, m.points, m.attempts), nil
	}
	return Verdict{Correct: true}, nil
}
