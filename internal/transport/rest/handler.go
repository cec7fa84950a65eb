package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"lecto-bridge/internal/lecto"
	"lecto-bridge/internal/repository"
	"lecto-bridge/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RemindExporter interface {
	StartRemindsExport(ctx context.Context, remindGroupID uint64, remindAt lecto.Date, userID int64) (string, error)
}

type DebtSyncer interface {
	Sync(ctx context.Context, filter repository.DebtsFilter) (*service.SyncResult, error)
}

type Handler struct {
	reminds    RemindExporter
	sync       DebtSyncer
	exportList ExportListService
	logger     *slog.Logger
}

func NewHandler(reminds RemindExporter, sync DebtSyncer, exportList ExportListService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		reminds:    reminds,
		sync:       sync,
		exportList: exportList,
		logger:     logger,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.listExports)
		r.Get("/{export_id}", h.getExport)
		r.Post("/reminds", h.exportReminds)
	})

	r.Post("/sync/debts", h.syncDebts)

	return r
}
