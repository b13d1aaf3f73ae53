package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/content"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/play"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/progress"
	sharedauth "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/auth"
	sharederrors "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/errors"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/logging"
	sharedserver "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/server"
)

const dayYAML = `
title: Четверг
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
  - id: tehillim
    title: Теилим
    games:
      - id: wheel-1
        kind: wheel
        segments:
          - kind: question
            prompt: Сколько глав?
            options: ["150", "100"]
            correct: 0
            points: 20
`

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	clock := fixedClock{now: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)}
	logger := logging.Discard()

	progressSvc, err := progress.NewService(progress.NewMemoryRepository(), clock, progress.NewUUIDGenerator(), nil, logger)
	require.NoError(t, err)

	loader := content.NewFSLoader(fstest.MapFS{"2024-03-14.yaml": {Data: []byte(dayYAML)}})
	playSvc, err := play.NewService(loader, progressSvc, logger, nil, play.Config{Clock: clock, Seed: 1})
	require.NoError(t, err)

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{Mode: sharedauth.ModeNoop})
	require.NoError(t, err)

	return sharedserver.NewRouter(sharedserver.RouterConfig{Service: "chitas-progress"}, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier))
			RegisterRoutes(r, progressSvc, playSvc, logger)
		})
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-ID", "kid-1")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestRequiresAuthentication(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/progress", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decode[sharederrors.ErrorResponse](t, rec)
	assert.Equal(t, sharederrors.CodeUnauthorized, body.Code)
}

func TestSummaryForNewLearner(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/v1/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, key := range []string{`"user_id"`, `"weekly_badges"`, `"completed_today"`, `"total_days"`, `"next_threshold"`, `"min_streak"`, `"reminder_hour"`} {
		assert.Contains(t, body, key)
	}
	assert.NotContains(t, body, `"userId"`)

	summary := decode[progress.Summary](t, rec)
	assert.Equal(t, "kid-1", summary.UserID)
	assert.Equal(t, "2024-03-14", summary.Date)
	assert.Zero(t, summary.Streak.Current)
	assert.Equal(t, "Талмид", summary.Level.Level.Name)
}

func TestPlayingAGameUpdatesProgress(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/days/today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[play.Day](t, rec)
	assert.Equal(t, "2024-03-14", day.Date)
	require.Len(t, day.Sections, 2)

	rec = do(t, router, http.MethodPost, "/v1/days/2024-03-14/games/quiz-1/submit", `{"choice":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var move struct {
		Verdict struct {
			Correct bool `json:"correct"`
			Points  int  `json:"points"`
		} `json:"verdict"`
		Progress *progress.Summary `json:"progress"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&move))
	assert.True(t, move.Verdict.Correct)
	assert.Equal(t, 15, move.Verdict.Points)
	require.NotNil(t, move.Progress)
	assert.Equal(t, 15, move.Progress.Score)
	assert.Equal(t, 1, move.Progress.Stars)

	rec = do(t, router, http.MethodGet, "/v1/streaks/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"current":1,"max":1}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/v1/days/2024-03-14/games/quiz-1/submit", `{"choice":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"repeat":true`)
	assert.NotContains(t, rec.Body.String(), `"progress"`)
}

func TestSpinAndAnswerWheel(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/days/2024-03-14/games/wheel-1/submit", `{"choice":0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/days/2024-03-14/games/wheel-1/spin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"question"`)

	rec = do(t, router, http.MethodPost, "/v1/days/2024-03-14/games/wheel-1/submit", `{"choice":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"done":true`)

	rec = do(t, router, http.MethodPost, "/v1/days/2024-03-14/games/quiz-1/spin", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDayErrors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown date", http.MethodGet, "/v1/days/2024-03-16", "", http.StatusNotFound, sharederrors.CodeNotFound},
		{"malformed date", http.MethodGet, "/v1/days/yesterday", "", http.StatusBadRequest, sharederrors.CodeBadRequest},
		{"unknown game", http.MethodGet, "/v1/days/2024-03-14/games/nope", "", http.StatusNotFound, sharederrors.CodeNotFound},
		{"bad payload", http.MethodPost, "/v1/days/2024-03-14/games/quiz-1/submit", `{"choice":`, http.StatusBadRequest, sharederrors.CodeBadRequest},
		{"out of range", http.MethodPost, "/v1/days/2024-03-14/games/quiz-1/submit", `{"choice":7}`, http.StatusBadRequest, sharederrors.CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[sharederrors.ErrorResponse](t, rec).Code)
		})
	}
}

func TestListDays(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/v1/days", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dates":["2024-03-14"],"today":"2024-03-14"}`, rec.Body.String())
}

func TestRecordRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/progress/record", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPut, "/v1/progress/record",
		`{"score":40,"stars":3,"completions":{"2024-03-13":["tanya"],"2024-03-14":["chumash"]},"settings":{"language":"en","voice":true,"notifications":false,"reminder_hour":8}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/progress/record", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[progress.Record](t, rec)
	assert.Equal(t, "kid-1", stored.UserID)
	assert.Equal(t, 40, stored.Score)
	assert.Equal(t, 2, stored.MaxStreak)
	assert.Equal(t, "en", stored.Settings.Language)

	rec = do(t, router, http.MethodPut, "/v1/progress/record", `{"user_id":"someone-else"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPut, "/v1/progress/record", `{"completions":{"bad":["x"]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/v1/progress", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/progress/record", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncDisabled(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/v1/progress/sync", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, sharederrors.CodeUnavailable, decode[sharederrors.ErrorResponse](t, rec).Code)
}

func TestUpdateSettings(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPatch, "/v1/progress/settings", `{"reminder_hour":19,"notifications":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[progress.Settings](t, rec)
	assert.Equal(t, 19, settings.ReminderHour)
	assert.True(t, settings.Notifications)

	rec = do(t, router, http.MethodPatch, "/v1/progress/settings", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPatch, "/v1/progress/settings", `{"language":"fr"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[sharederrors.ErrorResponse](t, rec).Message, "language must be one of")
}

func TestAchievementsAndLevels(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/achievements/levels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var levels struct {
		Levels []struct {
			Name      string `json:"name"`
			MinStreak int    `json:"min_streak"`
		} `json:"levels"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&levels))
	require.Len(t, levels.Levels, 5)
	assert.Equal(t, 100, levels.Levels[4].MinStreak)

	rec = do(t, router, http.MethodGet, "/v1/achievements", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ach := decode[achievementsResponse](t, rec)
	assert.Len(t, ach.Badges, 5)
	assert.Equal(t, 7, ach.Level.NextThreshold)
}

func TestCreateShare(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/shares", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	share := decode[progress.Share](t, rec)
	assert.Contains(t, share.Text, "Талмид")

	rec = do(t, router, http.MethodPost, "/v1/shares?format=png", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
