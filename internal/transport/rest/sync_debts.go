package rest

import (
	"errors"
	"net/http"

	"lecto-bridge/internal/lecto"
)

func (h *Handler) syncDebts(w http.ResponseWriter, r *http.Request) {
	filter, err := ValidateSyncRequest(r)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	result, err := h.sync.Sync(r.Context(), *filter)
	if err != nil {
		h.logger.Error("debt sync aborted", "error", err)

		// partial progress is returned with the error
		var data any
		if result != nil {
			data = result
		}

		var apiErr *lecto.APIError
		if errors.As(err, &apiErr) {
			ErrorWithData(w, "lecto: "+apiErr.Kind.String(), data, http.StatusBadGateway)
			return
		}
		ErrorWithData(w, "sync failed", data, http.StatusInternalServerError)
		return
	}

	Success(w, "", result)
}
