package rest

import (
	"context"
	"errors"
	"net/http"

	"lecto-bridge/internal/service"
	"lecto-bridge/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type ExportListService interface {
	GetExports(ctx context.Context, userID int64) ([]service.ExportView, error)
	GetExport(ctx context.Context, exportID string, userID int64) (*service.ExportView, error)
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exportList.GetExports(r.Context(), userID)
	if err != nil {
		h.logger.Error("list exports", "user_id", userID, "error", err)
		ErrorInternal(w, "failed to get exports")
		return
	}

	Success(w, "", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportIDParam := chi.URLParam(r, "export_id")
	if exportIDParam == "" {
		ErrorBadRequest(w, "export_id is required")
		return
	}
	exportID := "exports:" + exportIDParam

	export, err := h.exportList.GetExport(r.Context(), exportID, userID)
	if errors.Is(err, service.ErrExportNotFound) {
		ErrorNotFound(w, "export not found")
		return
	}
	if err != nil {
		h.logger.Error("get export", "export_id", exportID, "error", err)
		ErrorInternal(w, "failed to get export")
		return
	}

	Success(w, "", export)
}
