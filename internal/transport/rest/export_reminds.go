package rest

import (
	"errors"
	"net/http"

	"lecto-bridge/internal/transport/auth"
)

func (h *Handler) exportReminds(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateRemindExportRequest(r)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.reminds.StartRemindsExport(r.Context(), req.RemindGroupID, req.RemindAt, userID)
	if err != nil {
		h.logger.Error("start reminds export", "remind_group_id", req.RemindGroupID, "error", err)
		ErrorInternal(w, "failed to start export")
		return
	}

	SuccessAccepted(w, "Export queued", map[string]any{
		"export_id": exportID,
	})
}
