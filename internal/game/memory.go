package game

import (
	"time"
)

type card struct {
	pair    int
	face    string
	matched bool
}

// Memory lays out every pair as two face-down cards. Two flipped cards with the same
// pair stay open; a mismatch is hidden again once the flip-back delay has passed or
// the next card is flipped, whichever comes first.
type Memory struct {
	completion
	title    string
	prompt   string
	cards    []card
	open     []int
	openedAt time.Time
	clock    Clock
	delay    time.Duration
	attempts int
	points   int
}

func newMemory(base completion, def Definition, opts Options) *Memory {
	cards := make([]card, 0, len(def.Pairs)*2)
	for i, p := range def.Pairs {
		right := p.Right
		if right == "" {
			right = p.Left
		}
		cards = append(cards, card{pair: i, face: p.Left}, card{pair: i, face: right})
	}
	opts.Rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	return &Memory{
		completion: base,
		title:      def.Title,
		prompt:     def.Prompt,
		cards:      cards,
		clock:      opts.Clock,
		delay:      opts.FlipBackDelay,
		points:     def.points(),
	}
}

func (m *Memory) Render() View {
	m.settle(false)

	v := m.baseView(m.title, m.prompt)
	v.Cards = make([]CardView, len(m.cards))
	for i, c := range m.cards {
		cv := CardView{Index: i, Matched: c.matched, Open: c.matched || m.isOpen(i)}
		if cv.Open || m.done {
			cv.Face = c.face
		}
		v.Cards[i] = cv
	}
	if m.done {
		v.Score = m.result.PointsAwarded
	}
	return v
}

// Submit flips card Choice. The verdict is only meaningful on the second card of a turn.
func (m *Memory) Submit(in Input) (Verdict, error) {
	if m.done {
		return m.final(), nil
	}
	if in.Choice == nil || *in.Choice < 0 || *in.Choice >= len(m.cards) {
		return Verdict{}, ErrInvalidInput
	}
	m.settle(true)

	idx := *in.Choice
	if m.cards[idx].matched || m.isOpen(idx) {
		return Verdict{}, ErrInvalidInput
	}

	m.open = append(m.open, idx)
	if len(m.open) < 2 {
		return Verdict{}, nil
	}

	m.attempts++
	first, second := m.open[0], m.open[1]
	if m.cards[first].pair != m.cards[second].pair {
		m.openedAt = m.clock.Now()
		return Verdict{Correct: false}, nil
	}

	m.cards[first].matched = true
	m.cards[second].matched = true
	m.open = m.open[:0]

	if m.allMatched() {
		return m.finish(true, m.points, m.attempts), nil
	}
	return Verdict{Correct: true}, nil
}

// settle hides a mismatched pair when its delay has elapsed, or unconditionally when
// force is set because a new card is about to be flipped.
func (m *Memory) settle(force bool) {
	if len(m.open) < 2 {
		return
	}
	if force || !m.clock.Now().Before(m.openedAt.Add(m.delay)) {
		m.open = m.open[:0]
	}
}

func (m *Memory) isOpen(idx int) bool {
	for _, o := range m.open {
		if o == idx {
			return true
		}
	}
	return false
}

func (m *Memory) allMatched() bool {
	for _, c := range m.cards {
		if !c.matched {
			return false
		}
	}
	return true
}
