package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mergequest/mergequest/internal/apperror"
	"github.com/mergequest/mergequest/internal/service"
)

// BadgeHandler serves the badge catalog and per-user badge queries, plus
// the admin award/revoke endpoints.
type BadgeHandler struct {
	svc    *service.BadgeService
	logger *slog.Logger
}

func NewBadgeHandler(svc *service.BadgeService, logger *slog.Logger) *BadgeHandler {
	return &BadgeHandler{svc: svc, logger: logger}
}

// HandleCatalog returns every badge that can be earned, with thresholds,
// descriptions and levels.
//
// HTTP: GET /api/badges/available
func (h *BadgeHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog())
}

// HandleUserBadges returns the badges held by a user along with the user's
// current point total.
//
// HTTP: GET /api/badges/user/{userID}
func (h *BadgeHandler) HandleUserBadges(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	set, err := h.svc.UserBadges(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, set)
}

// awardRequest is the body for the manual award endpoint.
type awardRequest struct {
	UserID string `json:"user_id"`
	Badge  string `json:"badge"`
}

// HandleAward grants a badge outside the threshold ladder.
//
// HTTP: POST /api/badges/award
// BODY: {"user_id": "...", "badge": "PR Ninja"}
func (h *BadgeHandler) HandleAward(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.UserID == "" || req.Badge == "" {
		writeError(w, apperror.ValidationFailed("body", "user_id and badge are required"))
		return
	}

	badge, err := h.svc.Award(r.Context(), req.UserID, req.Badge)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("badge awarded via API", slog.String("userID", req.UserID), slog.String("badge", req.Badge))
	writeJSON(w, http.StatusCreated, badge)
}

// HandleRevoke removes a badge by ID and returns the removed record.
//
// HTTP: DELETE /api/badges/{badgeID}
func (h *BadgeHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	badgeID := r.PathValue("badgeID")

	badge, err := h.svc.Revoke(r.Context(), badgeID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, badge)
}
