package game

import (
	"math/rand"
	"strings"
)

// Anagram asks the player to rebuild a word from its scrambled letters.
type Anagram struct {
	completion
	title   string
	prompt  string
	hint    string
	word    string
	letters []string
	points  int
}

func newAnagram(base completion, def Definition, rng *rand.Rand) *Anagram {
	word := strings.TrimSpace(def.Word)
	runes := []rune(word)
	letters := make([]string, len(runes))
	for i, r := range runes {
		letters[i] = string(r)
	}
	scramble(letters, rng)

	return &Anagram{
		completion: base,
		title:      def.Title,
		prompt:     def.Prompt,
		hint:       def.Hint,
		word:       word,
		letters:    letters,
		points:     def.points(),
	}
}

// scramble shuffles letters in place and avoids handing back the solved word when a
// different order exists.
func scramble(letters []string, rng *rand.Rand) {
	original := strings.Join(letters, "")
	for tries := 0; tries < 5; tries++ {
		rng.Shuffle(len(letters), func(i, j int) { letters[i], letters[j] = letters[j], letters[i] })
		if strings.Join(letters, "") != original {
			return
		}
	}
}

func (a *Anagram) Render() View {
	v := a.baseView(a.title, a.prompt)
	v.Letters = append([]string(nil), a.letters...)
	v.Hint = a.hint
	if a.done {
		v.Score = a.result.PointsAwarded
	}
	return v
}

// Submit compares the assembled word with the target, ignoring case and surrounding space.
func (a *Anagram) Submit(in Input) (Verdict, error) {
	if a.done {
		return a.final(), nil
	}
	word := strings.TrimSpace(in.Word)
	if word == "" {
		return Verdict{}, ErrInvalidInput
	}
	if strings.EqualFold(word, a.word) {
		return a.finish(true, a.points, 1), nil
	}
	return a.finish(false, 0, 1), nil
}
