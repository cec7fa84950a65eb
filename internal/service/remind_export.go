package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"lecto-bridge/internal/lecto"
	"lecto-bridge/internal/metrics"
	"lecto-bridge/internal/report"

	"github.com/google/uuid"
)

const remindExportType = "reminds"

type RemindLister interface {
	ListReminds(ctx context.Context, remindGroupID uint64, remindAt lecto.Date) ([]lecto.Remind, error)
}

// Uploader stores a finished report and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

type Notifier interface {
	NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error
	NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error
	NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error
}

// Report is a rendered remind report.
type Report struct {
	FileName string
	Rows     []report.Row
	Data     []byte
}

type RemindExportService struct {
	lecto    RemindLister
	uploader Uploader
	store    *StatusStore
	notifier Notifier
	logger   *slog.Logger

	columns []report.Column
	now     func() time.Time
}

func NewRemindExportService(
	lecto RemindLister,
	uploader Uploader,
	store *StatusStore,
	notifier Notifier,
	logger *slog.Logger,
) *RemindExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemindExportService{
		lecto:    lecto,
		uploader: uploader,
		store:    store,
		notifier: notifier,
		logger:   logger,
		columns:  report.DefaultColumns(),
		now:      time.Now,
	}
}

// WithColumns restricts the rendered columns. Unknown keys are ignored.
func (s *RemindExportService) WithColumns(keys []string) *RemindExportService {
	s.columns = report.SelectColumns(keys)
	return s
}

func reportFileName(groupID uint64, date lecto.Date) string {
	return fmt.Sprintf("reminds_%d_%s.xlsx", groupID, date.Time.Format("20060102"))
}

// BuildReport fetches the reminds of a group, groups them per debtor and
// renders the workbook.
func (s *RemindExportService) BuildReport(ctx context.Context, groupID uint64, date lecto.Date) (*Report, error) {
	return s.buildReport(ctx, groupID, date, nil)
}

func (s *RemindExportService) buildReport(ctx context.Context, groupID uint64, date lecto.Date, progress report.ProgressFunc) (*Report, error) {
	reminds, err := s.lecto.ListReminds(ctx, groupID, date)
	if err != nil {
		return nil, fmt.Errorf("list reminds of group %d: %w", groupID, err)
	}

	rows := report.Group(reminds)

	buf, err := report.WriteXLSX(rows, s.columns, progress)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	return &Report{
		FileName: reportFileName(groupID, date),
		Rows:     rows,
		Data:     buf.Bytes(),
	}, nil
}

// StartRemindsExport records a pending export and builds it in the
// background. The returned id is the key of the export status.
func (s *RemindExportService) StartRemindsExport(ctx context.Context, groupID uint64, date lecto.Date, userID int64) (string, error) {
	exportID := fmt.Sprintf("exports:%s", uuid.NewString())

	status := &ExportStatus{
		Key:    exportID,
		Type:   remindExportType,
		UserID: userID,
		Filters: map[string]any{
			"remind_group_id": groupID,
			"remind_at":       date.String(),
		},
		Created: s.now(),
	}

	if err := s.store.Save(ctx, status); err != nil {
		return "", fmt.Errorf("record export %s: %w", exportID, err)
	}

	// the job outlives the request that started it
	go s.runRemindsExport(context.WithoutCancel(ctx), status, groupID, date)

	return exportID, nil
}

func (s *RemindExportService) runRemindsExport(ctx context.Context, status *ExportStatus, groupID uint64, date lecto.Date) {
	log := s.logger.With("export_id", status.Key, "remind_group_id", groupID, "remind_at", date.String())

	s.progress(ctx, status, 10, "fetching")

	rep, err := s.buildReport(ctx, groupID, date, func(done, total int) {
		// rendering spans 10..90
		p := 10 + math.Round(float64(done)/float64(total)*80)
		s.progress(ctx, status, p, "generating")
	})
	if err != nil {
		s.fail(ctx, log, status, err)
		return
	}

	s.progress(ctx, status, 95, "uploading")

	url, err := s.uploader.Upload(ctx, rep.FileName, rep.Data)
	if err != nil {
		s.fail(ctx, log, status, fmt.Errorf("upload report: %w", err))
		return
	}

	status.FileURL = &url
	s.progress(ctx, status, 100, "ready")
	if s.notifier != nil {
		_ = s.notifier.NotifyExportComplete(ctx, status.UserID, status.Key, url, rep.FileName)
	}

	metrics.ExportsTotal.WithLabelValues("success").Inc()
	log.Info("remind export ready", "rows", len(rep.Rows), "file", rep.FileName)
}

func (s *RemindExportService) progress(ctx context.Context, status *ExportStatus, p float64, stage string) {
	status.Progress = p
	if err := s.store.Save(ctx, status); err != nil {
		s.logger.Warn("failed to save export status", "export_id", status.Key, "error", err)
	}
	if s.notifier != nil {
		_ = s.notifier.NotifyExportProgress(ctx, status.UserID, status.Key, p, stage)
	}
}

func (s *RemindExportService) fail(ctx context.Context, log *slog.Logger, status *ExportStatus, err error) {
	msg := failureMessage(err)
	status.Error = &msg

	if saveErr := s.store.Save(ctx, status); saveErr != nil {
		log.Warn("failed to save export status", "error", saveErr)
	}
	if s.notifier != nil {
		_ = s.notifier.NotifyExportFailed(ctx, status.UserID, status.Key, msg)
	}

	metrics.ExportsTotal.WithLabelValues("failure").Inc()
	log.Error("remind export failed", "error", err)
}

// failureMessage prefixes the Lecto error kind so clients can tell a rejected
// request from an outage.
func failureMessage(err error) string {
	if kind, ok := lecto.KindOf(err); ok {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	var decodeErr *lecto.DecodeError
	if errors.As(err, &decodeErr) {
		return fmt.Sprintf("decode: %v", err)
	}
	return err.Error()
}
