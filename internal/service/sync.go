package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"lecto-bridge/internal/domain"
	"lecto-bridge/internal/lecto"
	"lecto-bridge/internal/metrics"
	"lecto-bridge/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	recordDebtor     = "debtor"
	recordDebt       = "debt"
	recordDebtStatus = "debt_status"

	defaultSyncConcurrency = 4
)

// statusNeverExpires is the expire_at sent with every status update.
var statusNeverExpires = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

type DebtRepository interface {
	ListForSync(ctx context.Context, f repository.DebtsFilter) ([]domain.Debt, error)
}

type LectoWriter interface {
	CreateDebtor(ctx context.Context, req lecto.DebtorRequest) (*lecto.Debtor, error)
	CreateDebt(ctx context.Context, req lecto.DebtRequest) (*lecto.Debt, error)
	UpdateDebtStatus(ctx context.Context, req lecto.DebtStatusRequest) (*lecto.DebtStatus, error)
}

// SyncFailure is a record Lecto rejected.
type SyncFailure struct {
	Record   string `json:"record"`
	Ref      string `json:"ref"`
	Kind     string `json:"kind"`
	Status   int    `json:"status"`
	Response string `json:"response"`
}

type SyncResult struct {
	Debtors  int           `json:"debtors"`
	Debts    int           `json:"debts"`
	Statuses int           `json:"statuses"`
	Failed   []SyncFailure `json:"failed"`
}

func (r *SyncResult) merge(o *SyncResult) {
	r.Debtors += o.Debtors
	r.Debts += o.Debts
	r.Statuses += o.Statuses
	r.Failed = append(r.Failed, o.Failed...)
}

// SyncService pushes local debts and their debtors to Lecto.
type SyncService struct {
	repo        DebtRepository
	lecto       LectoWriter
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

func NewSyncService(repo DebtRepository, lecto LectoWriter, logger *slog.Logger, concurrency int) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = defaultSyncConcurrency
	}
	return &SyncService{
		repo:        repo,
		lecto:       lecto,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

type debtorBatch struct {
	debtor domain.Debtor
	debts  []domain.Debt
}

// batchByDebtor keeps the order in which debtors first appear.
func batchByDebtor(debts []domain.Debt) []*debtorBatch {
	index := make(map[string]int)
	var batches []*debtorBatch
	for _, d := range debts {
		i, ok := index[d.Debtor.ID]
		if !ok {
			i = len(batches)
			index[d.Debtor.ID] = i
			batches = append(batches, &debtorBatch{debtor: d.Debtor})
		}
		batches[i].debts = append(batches[i].debts, d)
	}
	return batches
}

// Sync creates every debtor once, then its debts and their statuses. Records
// Lecto rejects as invalid are collected in Failed and the run goes on; any
// other error stops the run.
func (s *SyncService) Sync(ctx context.Context, filter repository.DebtsFilter) (*SyncResult, error) {
	debts, err := s.repo.ListForSync(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}

	batches := batchByDebtor(debts)
	results := make([]*SyncResult, len(batches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, b := range batches {
		g.Go(func() error {
			res, err := s.syncDebtor(ctx, b)
			results[i] = res
			return err
		})
	}

	waitErr := g.Wait()

	total := &SyncResult{Failed: []SyncFailure{}}
	for _, r := range results {
		if r != nil {
			total.merge(r)
		}
	}

	s.logger.Info("debt sync finished",
		"debtors", total.Debtors,
		"debts", total.Debts,
		"statuses", total.Statuses,
		"failed", len(total.Failed),
	)

	if waitErr != nil {
		return total, waitErr
	}
	return total, nil
}

func (s *SyncService) syncDebtor(ctx context.Context, b *debtorBatch) (*SyncResult, error) {
	res := &SyncResult{}

	// a rejected debtor may already exist in Lecto, so its debts are still sent
	if _, err := s.lecto.CreateDebtor(ctx, debtorRequest(b.debtor)); err != nil {
		if err := s.record(res, recordDebtor, b.debtor.ID, err); err != nil {
			return res, err
		}
	} else {
		res.Debtors++
		metrics.SyncedRecords.WithLabelValues(recordDebtor, "ok").Inc()
	}

	for _, d := range b.debts {
		if _, err := s.lecto.CreateDebt(ctx, debtRequest(d)); err != nil {
			if err := s.record(res, recordDebt, d.Number, err); err != nil {
				return res, err
			}
			continue
		}
		res.Debts++
		metrics.SyncedRecords.WithLabelValues(recordDebt, "ok").Inc()

		if d.StatusName == nil || strings.TrimSpace(*d.StatusName) == "" {
			continue
		}

		req := lecto.DebtStatusRequest{
			DebtID:    d.Number,
			Status:    *d.StatusName,
			ChangedAt: s.now().UTC(),
			ExpireAt:  statusNeverExpires,
		}
		if _, err := s.lecto.UpdateDebtStatus(ctx, req); err != nil {
			if err := s.record(res, recordDebtStatus, d.Number, err); err != nil {
				return res, err
			}
			continue
		}
		res.Statuses++
		metrics.SyncedRecords.WithLabelValues(recordDebtStatus, "ok").Inc()
	}

	return res, nil
}

// record keeps a rejected record in res. Errors other than 422 and 400 are
// returned wrapped and end the sync.
func (s *SyncService) record(res *SyncResult, record, ref string, err error) error {
	var apiErr *lecto.APIError
	if !errors.As(err, &apiErr) || (apiErr.Kind != lecto.KindValidationFailed && apiErr.Kind != lecto.KindBadRequest) {
		metrics.SyncedRecords.WithLabelValues(record, "error").Inc()
		return fmt.Errorf("sync %s %s: %w", record, ref, err)
	}

	metrics.SyncedRecords.WithLabelValues(record, "rejected").Inc()
	s.logger.Warn("lecto rejected record",
		"record", record,
		"ref", ref,
		"kind", apiErr.Kind.String(),
		"status", apiErr.Status,
	)

	res.Failed = append(res.Failed, SyncFailure{
		Record:   record,
		Ref:      ref,
		Kind:     apiErr.Kind.String(),
		Status:   apiErr.Status,
		Response: apiErr.Response,
	})
	return nil
}

func debtorRequest(d domain.Debtor) lecto.DebtorRequest {
	req := lecto.DebtorRequest{
		DebtorID:     d.ID,
		Name:         fullName(d),
		Gender:       gender(d.Gender),
		Email:        deref(d.Email),
		Address:      deref(d.Address),
		PostalCode:   deref(d.PostalCode),
		PhoneNumber:  deref(d.Phone),
		MobileNumber: deref(d.Mobile),
	}
	if d.BirthDate != nil {
		bd := lecto.NewDate(d.BirthDate.Date())
		req.BirthDate = &bd
	}
	return req
}

func debtRequest(d domain.Debt) lecto.DebtRequest {
	req := lecto.DebtRequest{
		DebtID:         d.Number,
		DebtorID:       d.Debtor.ID,
		DealtAt:        formatDate(d.StartDate),
		DebtAmount:     toAmount(d.AmountActualDebt),
		RepaymentDueAt: formatDate(d.EndDate),
		Appendix:       d.AdditionalData,
		RemindSegments: []string{},
	}
	if fee := toAmount(d.AmountFine + d.AmountAccrual); fee > 0 {
		req.DebtFee = &fee
	}
	if d.CounterpartyID != nil {
		req.Partner = &lecto.Partner{ID: *d.CounterpartyID, Name: deref(d.CounterpartyName)}
	}
	return req
}

func fullName(d domain.Debtor) string {
	parts := make([]string, 0, 3)
	for _, p := range []*string{d.LastName, d.FirstName, d.MiddleName} {
		if s := strings.TrimSpace(deref(p)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func gender(g *string) lecto.Gender {
	switch strings.ToLower(strings.TrimSpace(deref(g))) {
	case "male", "m":
		return lecto.GenderMale
	case "female", "f":
		return lecto.GenderFemale
	case "other":
		return lecto.GenderOther
	default:
		return lecto.GenderNone
	}
}

// toAmount rounds to whole currency units; negative balances become 0.
func toAmount(v float64) uint64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return uint64(math.Round(v))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
