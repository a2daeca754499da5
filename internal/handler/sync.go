package handler

import (
	"log/slog"
	"net/http"

	"github.com/mergequest/mergequest/internal/service"
)

// SyncHandler triggers pull-request reconciliation for a user.
type SyncHandler struct {
	svc    *service.SyncService
	logger *slog.Logger
}

func NewSyncHandler(svc *service.SyncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, logger: logger}
}

// HandleSync runs one reconciliation pass for the given GitHub login and
// returns the pass summary.
//
// HTTP: POST /api/sync/{githubID}
//
// The operation is idempotent — hammering the button on the frontend costs
// GitHub API calls but cannot double-count points. A 401 here means GitHub
// rejected the user's stored token and they need to log in again; it does
// NOT mean the caller's own session is invalid.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	githubID := r.PathValue("githubID")
	if githubID == "" {
		http.Error(w, `{"success":false,"message":"github ID is required"}`, http.StatusBadRequest)
		return
	}

	result, err := h.svc.Sync(r.Context(), githubID)
	if err != nil {
		h.logger.Error("sync failed", slog.String("githubID", githubID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
