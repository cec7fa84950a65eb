package service

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
)

// ExportView is an export status as shown to its owner.
type ExportView struct {
	Key       string  `json:"key"`
	Type      string  `json:"type"`
	UserID    int64   `json:"user_id"`
	Progress  float64 `json:"progress"`
	FileURL   *string `json:"file_url"`
	Error     *string `json:"error,omitempty"`
	Filters   any     `json:"filters"`
	CreatedAt string  `json:"created_at"`
}

type ExportService struct {
	store *StatusStore
	now   func() time.Time
}

func NewExportService(store *StatusStore) *ExportService {
	return &ExportService{store: store, now: time.Now}
}

func (s *ExportService) GetExports(ctx context.Context, userID int64) ([]ExportView, error) {
	statuses, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	exports := make([]ExportView, 0, len(statuses))
	for _, st := range statuses {
		exports = append(exports, s.view(st))
	}
	return exports, nil
}

// GetExport hides exports of other users behind ErrExportNotFound.
func (s *ExportService) GetExport(ctx context.Context, exportID string, userID int64) (*ExportView, error) {
	st, err := s.store.Get(ctx, exportID)
	if err != nil {
		return nil, err
	}

	if st.UserID != userID {
		return nil, ErrExportNotFound
	}

	v := s.view(*st)
	return &v, nil
}

func (s *ExportService) view(st ExportStatus) ExportView {
	return ExportView{
		Key:       st.Key,
		Type:      st.Type,
		UserID:    st.UserID,
		Progress:  st.Progress,
		FileURL:   st.FileURL,
		Error:     st.Error,
		Filters:   st.Filters,
		CreatedAt: humanizeAgo(st.Created, s.now()),
	}
}

func humanizeAgo(t, now time.Time) string {
	if !t.Before(now) || now.Sub(t) < time.Minute {
		return "just now"
	}
	if now.Sub(t) >= 30*24*time.Hour {
		return t.Format("02.01.2006 15:04")
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
