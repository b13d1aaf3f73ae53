package play

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/content"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/game"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/progress"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/logging"
)

const dayYAML = `
sections:
  - id: chumash
    title: Хумаш
    games:
      - id: quiz-1
        kind: quiz
        prompt: Кто построил ковчег?
        options: [Ной, Авраам]
        correct: 0
        points: 15
      - id: match-1
        kind: match
        pairs:
          - {left: Ной, right: Ковчег}
          - {left: Моше, right: Тора}
  - id: tehillim
    title: Теилим
    games:
      - id: tf-1
        kind: truefalse
        prompt: В Теилим 150 глав
        answer: true
      - id: broken
        kind: quiz
        options: []
`

type call struct {
	userID, date, sectionID string
	result                  game.Result
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeRecorder) RecordResult(_ context.Context, userID, date, sectionID string, result game.Result) (progress.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{userID, date, sectionID, result})
	return progress.Outcome{Added: f.err == nil}, f.err
}

func (f *fakeRecorder) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, rec Recorder) (*Service, *Metrics) {
	t.Helper()
	loader := content.NewFSLoader(fstest.MapFS{
		"2024-03-14.yaml": {Data: []byte(dayYAML)},
		"2024-03-15.yaml": {Data: []byte(dayYAML)},
		"2024-03-17.yaml": {Data: []byte(dayYAML)},
		"2024-03-18.yaml": {Data: []byte(dayYAML)},
	})
	metrics := NewMetrics(prometheus.NewRegistry())
	svc, err := NewService(loader, rec, logging.Discard(), metrics, Config{
		Clock: fixedClock{now: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)},
		Seed:  42,
	})
	require.NoError(t, err)
	return svc, metrics
}

func TestOpenRendersSectionsAndUnavailableGames(t *testing.T) {
	svc, metrics := newTestService(t, &fakeRecorder{})

	day, err := svc.Open(context.Background(), "kid", "2024-03-14")
	require.NoError(t, err)
	require.Len(t, day.Sections, 2)
	assert.Equal(t, "chumash", day.Sections[0].ID)
	require.Len(t, day.Sections[1].Games, 2)
	assert.Equal(t, game.StatusUnanswered, day.Sections[1].Games[0].Status)
	assert.Equal(t, game.StatusUnavailable, day.Sections[1].Games[1].Status)
	assert.Equal(t, game.UnavailableMessage, day.Sections[1].Games[1].Message)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.unavailable))

	_, err = svc.Open(context.Background(), "kid", "2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.SessionCount())
}

func TestSubmitReportsResultOnce(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc, metrics := newTestService(t, rec)

	move, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)
	assert.True(t, move.Verdict.Correct)
	assert.Equal(t, 15, move.Verdict.Points)
	assert.Equal(t, game.StatusAnswered, move.View.Status)

	again, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(1))
	require.NoError(t, err)
	assert.True(t, again.Verdict.Repeat)
	assert.True(t, again.Verdict.Correct)

	calls := rec.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, call{"kid", "2024-03-14", "chumash", game.Result{
		GameID: "quiz-1", Kind: game.KindQuiz, Correct: true, PointsAwarded: 15, Attempts: 1,
	}}, calls[0])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.completions.WithLabelValues("quiz", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.submissions.WithLabelValues("quiz", "repeat")))
}

func TestWrongAnswerIsReportedToo(t *testing.T) {
	rec := &fakeRecorder{}
	svc, _ := newTestService(t, rec)

	move, err := svc.Submit(context.Background(), "kid", "2024-03-14", "tf-1", game.Answer(false))
	require.NoError(t, err)
	assert.False(t, move.Verdict.Correct)

	calls := rec.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "tehillim", calls[0].sectionID)
	assert.False(t, calls[0].result.Correct)
}

func TestRecorderFailureDoesNotReachThePlayer(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("firestore unavailable")}
	svc, metrics := newTestService(t, rec)

	move, err := svc.Submit(context.Background(), "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)
	assert.True(t, move.Verdict.Correct)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.recordFailures))
}

func TestRestartDoesNotReportAgain(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc, _ := newTestService(t, rec)

	_, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)

	view, err := svc.Restart(ctx, "kid", "2024-03-14", "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusUnanswered, view.Status)

	_, err = svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)
	assert.Len(t, rec.recorded(), 1)

	results, err := svc.Results(ctx, "kid", "2024-03-14")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.Restart(ctx, "kid", "2024-03-14", "nope")
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc, _ := newTestService(t, rec)

	_, err := svc.Submit(ctx, "kid-a", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)

	view, err := svc.View(ctx, "kid-b", "2024-03-14", "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusUnanswered, view.Status)
}

func TestOldDaysAreEvicted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeRecorder{})

	for _, date := range []string{"2024-03-14", "2024-03-15", "2024-03-17", "2024-03-18"} {
		_, err := svc.Open(ctx, "kid", date)
		require.NoError(t, err)
	}
	assert.Equal(t, MaxDaysPerUser, svc.SessionCount())
}

func TestOpeningAnOlderDayKeepsItsSession(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc, _ := newTestService(t, rec)

	for _, date := range []string{"2024-03-15", "2024-03-17", "2024-03-18"} {
		_, err := svc.Open(ctx, "kid", date)
		require.NoError(t, err)
	}

	first, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)
	assert.True(t, first.Verdict.Correct)
	assert.False(t, first.Verdict.Repeat)

	for i := 0; i < 2; i++ {
		again, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
		require.NoError(t, err)
		assert.True(t, again.Verdict.Repeat)
	}
	assert.Len(t, rec.recorded(), 1)
	assert.Equal(t, MaxDaysPerUser, svc.SessionCount())
}

func TestLeastRecentlyUsedDayIsEvicted(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc, _ := newTestService(t, rec)

	for _, date := range []string{"2024-03-14", "2024-03-15", "2024-03-17"} {
		_, err := svc.Open(ctx, "kid", date)
		require.NoError(t, err)
	}
	_, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)

	// 2024-03-15 is now the least recently used day.
	_, err = svc.Open(ctx, "kid", "2024-03-18")
	require.NoError(t, err)

	again, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)
	assert.True(t, again.Verdict.Repeat)
	assert.Len(t, rec.recorded(), 1)
}

func TestEvictedDayDoesNotReportAgain(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc, _ := newTestService(t, rec)

	_, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)
	for _, date := range []string{"2024-03-15", "2024-03-17", "2024-03-18"} {
		_, err := svc.Open(ctx, "kid", date)
		require.NoError(t, err)
	}

	// The day is rebuilt with a fresh instance, but its result was already reported.
	replay, err := svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(0))
	require.NoError(t, err)
	assert.True(t, replay.Verdict.Correct)
	assert.Len(t, rec.recorded(), 1)

	results, err := svc.Results(ctx, "kid", "2024-03-14")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "quiz-1", results[0].GameID)
}

func TestMatchGameSpansSeveralRequests(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc, _ := newTestService(t, rec)
	partners := map[string]string{"Ной": "Ковчег", "Моше": "Тора"}

	view, err := svc.View(ctx, "kid", "2024-03-14", "match-1")
	require.NoError(t, err)
	rightOf := func(left int) int {
		for i, r := range view.Right {
			if r == partners[view.Left[left]] {
				return i
			}
		}
		t.Fatalf("no partner for %q", view.Left[left])
		return -1
	}

	first, err := svc.Submit(ctx, "kid", "2024-03-14", "match-1", game.Pair(0, rightOf(0)))
	require.NoError(t, err)
	assert.True(t, first.Verdict.Correct)
	assert.False(t, first.Verdict.Done)
	assert.Empty(t, rec.recorded())

	// Touching other days in between must not reset the half-played game.
	for _, date := range []string{"2024-03-15", "2024-03-17"} {
		_, err := svc.Open(ctx, "kid", date)
		require.NoError(t, err)
	}

	last, err := svc.Submit(ctx, "kid", "2024-03-14", "match-1", game.Pair(1, rightOf(1)))
	require.NoError(t, err)
	assert.True(t, last.Verdict.Done)
	assert.True(t, last.Verdict.Correct)
	assert.Equal(t, []int{0, 1}, last.View.Matched)

	calls := rec.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "match-1", calls[0].result.GameID)
	assert.Equal(t, "chumash", calls[0].sectionID)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeRecorder{})

	_, err := svc.Open(ctx, "", "2024-03-14")
	assert.ErrorIs(t, err, ErrMissingUserID)

	_, err = svc.Open(ctx, "kid", "2024-03-16")
	assert.ErrorIs(t, err, content.ErrNotFound)

	_, err = svc.View(ctx, "kid", "2024-03-14", "missing")
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	_, err = svc.SpinWheel(ctx, "kid", "2024-03-14", "quiz-1")
	assert.ErrorIs(t, err, game.ErrUnsupported)

	_, err = svc.Submit(ctx, "kid", "2024-03-14", "quiz-1", game.Choose(9))
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	_, err = NewService(nil, &fakeRecorder{}, nil, nil, Config{})
	assert.Error(t, err)
}
