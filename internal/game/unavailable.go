package game

// UnavailableMessage is shown in place of a game whose content could not be used.
const UnavailableMessage = "Эта игра сейчас недоступна"

// Unavailable stands in for a game with missing or malformed content. It renders a
// neutral message and ignores every interaction.
type Unavailable struct {
	id     string
	kind   Kind
	title  string
	reason error
}

func newUnavailable(def Definition, reason error) *Unavailable {
	return &Unavailable{id: def.ID, kind: def.Kind, title: def.Title, reason: reason}
}

func (u *Unavailable) ID() string { return u.id }

func (u *Unavailable) Kind() Kind { return u.kind }

// Done is always false: an unavailable game never produces a Result.
func (u *Unavailable) Done() bool { return false }

// Reason returns the validation problem that made the game unavailable.
func (u *Unavailable) Reason() error { return u.reason }

func (u *Unavailable) Render() View {
	return View{
		ID:      u.id,
		Kind:    u.kind,
		Status:  StatusUnavailable,
		Title:   u.title,
		Message: UnavailableMessage,
	}
}

func (u *Unavailable) Submit(Input) (Verdict, error) {
	return Verdict{}, nil
}

// Spin keeps an unavailable wheel inert.
func (u *Unavailable) Spin() (SpinOutcome, error) {
	return SpinOutcome{Segment: -1}, nil
}
