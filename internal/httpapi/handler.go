package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/achievement"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/content"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/game"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/play"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/progress"
	sharedauth "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/auth"
	sharederrors "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/errors"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/logging"
)

const (
	serviceTimeout     = 10 * time.Second
	maxPayloadBytes    = 1 << 20 // 1MB
	todayAlias         = "today"
	dateParam          = "date"
	gameIDParam        = "gameID"
	defaultShareFormat = "text"
)

type handler struct {
	progress *progress.Service
	play     *play.Service
	logger   *slog.Logger
}

type achievementsResponse struct {
	Level        achievement.LevelProgress `json:"level"`
	MaxStreak    int                       `json:"max_streak"`
	Badges       []achievement.Badge       `json:"badges"`
	WeeklyBadges []achievement.WeeklyBadge `json:"weekly_badges"`
}

type moveResponse struct {
	play.Move
	Progress *progress.Summary `json:"progress,omitempty"`
}

type spinResponse struct {
	play.Spin
	Progress *progress.Summary `json:"progress,omitempty"`
}

// RegisterRoutes mounts the progress, achievement and gameplay endpoints on r.
func RegisterRoutes(r chi.Router, progressSvc *progress.Service, playSvc *play.Service, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{progress: progressSvc, play: playSvc, logger: logger}

	r.Route("/v1/progress", func(r chi.Router) {
		r.Get("/", h.getSummary)
		r.Delete("/", h.resetProgress)
		r.Get("/record", h.getRecord)
		r.Put("/record", h.putRecord)
		r.Post("/sync", h.syncProgress)
		r.Patch("/settings", h.updateSettings)
	})
	r.Get("/v1/streaks/current", h.getStreak)
	r.Route("/v1/achievements", func(r chi.Router) {
		r.Get("/", h.getAchievements)
		r.Get("/levels", h.listLevels)
	})
	r.Route("/v1/days", func(r chi.Router) {
		r.Get("/", h.listDays)
		r.Get("/{date}", h.openDay)
		r.Get("/{date}/games/{gameID}", h.getGame)
		r.Post("/{date}/games/{gameID}/submit", h.submitGame)
		r.Post("/{date}/games/{gameID}/spin", h.spinGame)
		r.Post("/{date}/games/{gameID}/restart", h.restartGame)
	})
	r.Post("/v1/shares", h.createShare)
}

func (h *handler) getSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	summary, err := h.progress.Summary(ctx, userID)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) resetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	if err := h.progress.Reset(ctx, userID); err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	rec, err := h.progress.Load(ctx, userID)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) putRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var rec progress.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, r, sharederrors.CodeBadRequest, err.Error())
		return
	}
	if rec.UserID != "" && rec.UserID != userID {
		writeError(w, r, sharederrors.CodeForbidden, "record belongs to another user")
		return
	}
	rec.UserID = userID

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	saved, err := h.progress.Save(ctx, rec)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handler) syncProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	rec, err := h.progress.Sync(ctx, userID)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var patch progress.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, sharederrors.CodeBadRequest, err.Error())
		return
	}
	if patch == (progress.SettingsPatch{}) {
		writeError(w, r, sharederrors.CodeBadRequest, "no settings to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	settings, err := h.progress.UpdateSettings(ctx, userID, patch)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *handler) getStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	stats, err := h.progress.Streak(ctx, userID)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) getAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	summary, err := h.progress.Summary(ctx, userID)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, achievementsResponse{
		Level:        summary.Level,
		MaxStreak:    summary.Streak.Max,
		Badges:       summary.Badges,
		WeeklyBadges: summary.WeeklyBadges,
	})
}

func (h *handler) listLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"levels": achievement.Levels()})
}

func (h *handler) listDays(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	dates, err := h.play.Dates(ctx)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates, "today": h.progress.Today()})
}

func (h *handler) openDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	day, err := h.play.Open(ctx, userID, h.dateParam(r))
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *handler) getGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	view, err := h.play.View(ctx, userID, h.dateParam(r), chi.URLParam(r, gameIDParam))
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) submitGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in game.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, sharederrors.CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	move, err := h.play.Submit(ctx, userID, h.dateParam(r), chi.URLParam(r, gameIDParam), in)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}

	resp := moveResponse{Move: move}
	if move.Verdict.Done && !move.Verdict.Repeat {
		resp.Progress = h.summaryAfterMove(ctx, r, userID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) spinGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	spin, err := h.play.SpinWheel(ctx, userID, h.dateParam(r), chi.URLParam(r, gameIDParam))
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}

	resp := spinResponse{Spin: spin}
	if spin.Outcome.Done {
		resp.Progress = h.summaryAfterMove(ctx, r, userID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) restartGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	view, err := h.play.Restart(ctx, userID, h.dateParam(r), chi.URLParam(r, gameIDParam))
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) createShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if format := r.URL.Query().Get("format"); format != "" && format != defaultShareFormat {
		writeError(w, r, sharederrors.CodeBadRequest, "unsupported share format")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	share, err := h.progress.ShareText(ctx, userID)
	if err != nil {
		h.respondError(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

// summaryAfterMove attaches fresh progress to a finishing move. A failure here is logged
// only: the move itself already succeeded.
func (h *handler) summaryAfterMove(ctx context.Context, r *http.Request, userID string) *progress.Summary {
	summary, err := h.progress.Summary(ctx, userID)
	if err != nil {
		h.logRequestError(r, userID, "load summary after move", err)
		return nil
	}
	return &summary
}

func (h *handler) dateParam(r *http.Request) string {
	date := chi.URLParam(r, dateParam)
	if strings.EqualFold(date, todayAlias) {
		return h.progress.Today()
	}
	return date
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, userID string, err error) {
	switch {
	case errors.Is(err, progress.ErrMissingUserID), errors.Is(err, play.ErrMissingUserID):
		writeError(w, r, sharederrors.CodeUnauthorized, "missing user ID")
	case errors.Is(err, progress.ErrNotFound):
		writeError(w, r, sharederrors.CodeNotFound, "progress not found")
	case errors.Is(err, content.ErrNotFound):
		writeError(w, r, sharederrors.CodeNotFound, "no content for this date")
	case errors.Is(err, game.ErrGameNotFound):
		writeError(w, r, sharederrors.CodeNotFound, "game not found")
	case errors.Is(err, content.ErrInvalidDate):
		writeError(w, r, sharederrors.CodeBadRequest, "date must be YYYY-MM-DD or today")
	case errors.Is(err, progress.ErrInvalidInput):
		writeError(w, r, sharederrors.CodeBadRequest, trimSentinel(err))
	case errors.Is(err, game.ErrInvalidInput):
		writeError(w, r, sharederrors.CodeBadRequest, "input does not fit this game")
	case errors.Is(err, game.ErrUnsupported):
		writeError(w, r, sharederrors.CodeBadRequest, err.Error())
	case errors.Is(err, game.ErrNotSpun), errors.Is(err, game.ErrAnswerPending):
		writeError(w, r, sharederrors.CodeConflict, err.Error())
	case errors.Is(err, progress.ErrSyncDisabled):
		writeError(w, r, sharederrors.CodeUnavailable, "cloud sync is not enabled")
	case errors.Is(err, context.DeadlineExceeded):
		h.logRequestError(r, userID, "request timed out", err)
		writeError(w, r, sharederrors.CodeUnavailable, "request timed out")
	default:
		h.logRequestError(r, userID, "request failed", err)
		writeError(w, r, sharederrors.CodeInternal, "internal server error")
	}
}

func (h *handler) logRequestError(r *http.Request, userID, msg string, err error) {
	logging.WithRequestID(r.Context(), h.logger).Error(msg,
		slog.String("userId", userID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := sharedauth.UserFromContext(r.Context())
	if !ok || user.UserID == "" {
		writeError(w, r, sharederrors.CodeUnauthorized, "missing user ID")
		return "", false
	}
	return user.UserID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON payload")
	}
	return nil
}

// trimSentinel drops the "invalid input:" prefix so clients see only the details.
func trimSentinel(err error) string {
	msg := strings.TrimSpace(err.Error())
	if i := strings.Index(msg, ":"); i >= 0 {
		msg = strings.TrimSpace(msg[i+1:])
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	sharederrors.Write(w, code, message, middleware.GetReqID(r.Context()))
}
