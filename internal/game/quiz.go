package game

// Quiz is a single multiple-choice question.
type Quiz struct {
	completion
	title   string
	prompt  string
	options []string
	correct int
	points  int
}

func newQuiz(base completion, def Definition) *Quiz {
	return &Quiz{
		completion: base,
		title:      def.Title,
		prompt:     def.Prompt,
		options:    append([]string(nil), def.Options...),
		correct:    def.Correct,
		points:     def.points(),
	}
}

func (q *Quiz) Render() View {
	v := q.baseView(q.title, q.prompt)
	v.Options = append([]string(nil), q.options...)
	if q.done && q.result.Correct {
		v.Score = q.result.PointsAwarded
	}
	return v
}

// Submit answers the question with option index Choice. An out-of-range choice is
// rejected without consuming the question.
func (q *Quiz) Submit(in Input) (Verdict, error) {
	if q.done {
		return q.final(), nil
	}
	if in.Choice == nil || *in.Choice < 0 || *in.Choice >= len(q.options) {
		return Verdict{}, ErrInvalidInput
	}
	if *in.Choice == q.correct {
		return q.finish(true, q.points, 1), nil
	}
	return q.finish(false, 0, 1), nil
}

// TrueFalse is a single statement judged true or false.
type TrueFalse struct {
	completion
	title  string
	prompt string
	answer bool
	points int
}

func newTrueFalse(base completion, def Definition) *TrueFalse {
	return &TrueFalse{
		completion: base,
		title:      def.Title,
		prompt:     def.Prompt,
		answer:     *def.Answer,
		points:     def.points(),
	}
}

func (t *TrueFalse) Render() View {
	v := t.baseView(t.title, t.prompt)
	if t.done && t.result.Correct {
		v.Score = t.result.PointsAwarded
	}
	return v
}

func (t *TrueFalse) Submit(in Input) (Verdict, error) {
	if t.done {
		return t.final(), nil
	}
	if in.Value == nil {
		return Verdict{}, ErrInvalidInput
	}
	if *in.Value == t.answer {
		return t.finish(true, t.points, 1), nil
	}
	return t.finish(false, 0, 1), nil
}
