package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/game"
)

const dayYAML = `
title: Четверг
sections:
  - id: chumash
    title: Хумаш
    text: Берешит
    games:
      - id: chumash-quiz
        kind: quiz
        prompt: Кто построил ковчег?
        options: [Ной, Авраам, Моше]
        correct: 0
      - id: chumash-tf
        kind: truefalse
        prompt: Ковчег был из дерева
        answer: true
  - id: tehillim
    title: Теилим
    games:
      - id: tehillim-wheel
        kind: wheel
        segments:
          - kind: question
            prompt: Сколько глав в Теилим?
            options: ["150", "120"]
            correct: 0
            points: 20
          - kind: bankrupt
`

const dayJSON = `{"sections":[{"id":"tanya","title":"Тания","games":[{"id":"tanya-anagram","kind":"anagram","word":"душа"}]}]}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"2024-03-14.yaml": {Data: []byte(dayYAML)},
		"2024-03-15.json": {Data: []byte(dayJSON)},
		"README.md":       {Data: []byte("not content")},
		"notes.yaml":      {Data: []byte("title: draft")},
	}
}

func TestFSLoaderLoadsYAMLAndJSON(t *testing.T) {
	ctx := context.Background()
	loader := NewFSLoader(testFS())

	day, err := loader.Load(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", day.Date)
	require.Len(t, day.Sections, 2)
	assert.Len(t, day.Definitions(), 3)
	assert.Equal(t, game.KindWheel, day.Sections[1].Games[0].Kind)
	require.NotNil(t, day.Sections[0].Games[1].Answer)
	assert.True(t, *day.Sections[0].Games[1].Answer)

	section, ok := day.SectionOf("tehillim-wheel")
	assert.True(t, ok)
	assert.Equal(t, "tehillim", section)
	_, ok = day.SectionOf("missing")
	assert.False(t, ok)

	friday, err := loader.Load(ctx, "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", friday.Date)
	assert.Equal(t, "душа", friday.Sections[0].Games[0].Word)
	assert.Empty(t, Validate(friday))
}

func TestFSLoaderErrors(t *testing.T) {
	loader := NewFSLoader(testFS())

	_, err := loader.Load(context.Background(), "2024-03-16")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = loader.Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestFSLoaderDates(t *testing.T) {
	dates, err := NewFSLoader(testFS()).Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-14", "2024-03-15"}, dates)
}

func TestDirLoaderReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-03-14.yml"), []byte(dayYAML), 0o600))

	day, err := NewDirLoader(dir).Load(context.Background(), "2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, "Четверг", day.Title)
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	_, err := Decode("2024-03-14.toml", []byte("x"))
	assert.Error(t, err)

	_, err = Decode("2024-03-14.json", []byte("{"))
	assert.Error(t, err)
}

func TestValidateReportsProblems(t *testing.T) {
	day := DailyContent{
		Date: "14-03-2024",
		Sections: []Section{
			{ID: "a", Games: []game.Definition{
				{ID: "q", Kind: game.KindQuiz, Options: []string{"x"}, Correct: 3},
				{ID: "q", Kind: game.KindAnagram, Word: "ok"},
			}},
			{ID: "a"},
			{ID: ""},
		},
	}

	problems := Validate(day)
	messages := make([]string, 0, len(problems))
	for _, p := range problems {
		messages = append(messages, p.String())
	}
	assert.Len(t, problems, 5)
	assert.Contains(t, messages, "section a/game q: duplicate game id")
	assert.Contains(t, messages, "section a: duplicate section id")
	assert.Contains(t, messages, "sections[2].id is required")
}

func TestValidateEmptyDay(t *testing.T) {
	problems := Validate(DailyContent{Date: "2024-03-14"})
	require.Len(t, problems, 1)
	assert.Equal(t, "at least one section is required", problems[0].Message)
}

type countingLoader struct {
	calls int
	err   error
}

func (l *countingLoader) Load(_ context.Context, date string) (DailyContent, error) {
	l.calls++
	if l.err != nil {
		return DailyContent{}, l.err
	}
	return DailyContent{Date: date}, nil
}

func (l *countingLoader) Dates(context.Context) ([]string, error) { return nil, nil }

func TestCacheExpires(t *testing.T) {
	now := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)
	inner := &countingLoader{}
	cache := NewCache(inner, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cache.Load(ctx, "2024-03-14")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.calls)

	now = now.Add(2 * time.Minute)
	_, err := cache.Load(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	cache.Invalidate()
	_, err = cache.Load(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCacheDoesNotStoreMisses(t *testing.T) {
	inner := &countingLoader{err: ErrNotFound}
	cache := NewCache(inner, time.Hour, nil)

	_, err := cache.Load(context.Background(), "2024-03-14")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = cache.Load(context.Background(), "2024-03-14")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, inner.calls)
}
