package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mergequest/mergequest/internal/service"
)

// UserHandler serves leaderboard, profile and contribution-stats queries.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// HandleLeaderboard returns users ranked by total points.
//
// HTTP: GET /api/users/leaderboard?limit=20&offset=0
//
// Unparsable limit/offset values fall back to the defaults rather than
// erroring — the leaderboard is the landing page and should never 400 over
// a mangled query string.
func (h *UserHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := h.svc.Leaderboard(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("leaderboard query failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleGetProfile returns a user's profile with badges and pull requests.
//
// HTTP: GET /api/users/{githubID}
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	githubID := r.PathValue("githubID")

	profile, err := h.svc.GetProfile(r.Context(), githubID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleStats returns a user's monthly contribution history.
//
// HTTP: GET /api/stats/{githubID}
func (h *UserHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	githubID := r.PathValue("githubID")

	history, err := h.svc.PointsHistory(r.Context(), githubID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// HandleDelete removes a user and, via cascade, their pull requests and
// badges.
//
// HTTP: DELETE /api/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
