package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"lecto-bridge/internal/lecto"
	"lecto-bridge/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReminds() []lecto.Remind {
	debtor := lecto.Debtor{ID: 1, DebtorID: "D-1", BasicInformation: lecto.DebtorBasicInformation{Name: "Taro"}}
	return []lecto.Remind{
		{Label: "first", Debtor: debtor, Debts: []lecto.Debt{{DebtID: "A", DebtAmount: 1000}}},
		{Label: "second", Debtor: debtor, Debts: []lecto.Debt{{DebtID: "B", DebtAmount: 500}}},
	}
}

func waitFinal(t *testing.T, n *fakeNotifier) notification {
	t.Helper()
	select {
	case v := <-n.final:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("export did not finish")
		return notification{}
	}
}

func TestRemindExportService_BuildReport(t *testing.T) {
	lister := &fakeReminds{reminds: sampleReminds()}
	svc := NewRemindExportService(lister, nil, nil, nil, nil)

	date := lecto.NewDate(2024, time.March, 5)
	rep, err := svc.BuildReport(context.Background(), 12, date)
	require.NoError(t, err)

	assert.Equal(t, uint64(12), lister.gotGroup)
	assert.Equal(t, "2024-03-05", lister.gotDate.String())
	assert.Equal(t, "reminds_12_20240305.xlsx", rep.FileName)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, int64(1500), rep.Rows[0].TotalDebtAmount)

	f, err := excelize.OpenReader(bytes.NewReader(rep.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRemindExportService_BuildReportWrapsLectoError(t *testing.T) {
	apiErr := &lecto.APIError{Kind: lecto.KindServerFault, Status: 500}
	svc := NewRemindExportService(&fakeReminds{err: apiErr}, nil, nil, nil, nil)

	_, err := svc.BuildReport(context.Background(), 1, lecto.NewDate(2024, 1, 1))
	assert.ErrorIs(t, err, lecto.ErrServerFault)
}

func TestRemindExportService_StartRemindsExport(t *testing.T) {
	store := NewStatusStore(newMemCache())
	uploader := &fakeUploader{}
	notifier := newFakeNotifier()
	svc := NewRemindExportService(&fakeReminds{reminds: sampleReminds()}, uploader, store, notifier, nil)

	id, err := svc.StartRemindsExport(context.Background(), 3, lecto.NewDate(2024, 3, 5), 9)
	require.NoError(t, err)
	assert.Regexp(t, `^exports:[0-9a-f-]{36}$`, id)

	final := waitFinal(t, notifier)
	assert.Equal(t, "complete", final.kind)
	assert.Equal(t, "https://files.example/reminds_3_20240305.xlsx", final.payload)

	st, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 100.0, st.Progress)
	require.NotNil(t, st.FileURL)
	assert.Equal(t, final.payload, *st.FileURL)
	assert.Equal(t, "reminds", st.Type)

	progress := notifier.progressValues()
	require.NotEmpty(t, progress)
	assert.Equal(t, 10.0, progress[0])
	assert.Equal(t, 100.0, progress[len(progress)-1])
	assert.IsNonDecreasing(t, progress)
}

func TestRemindExportService_FailureRecordsKind(t *testing.T) {
	store := NewStatusStore(newMemCache())
	notifier := newFakeNotifier()
	lister := &fakeReminds{err: &lecto.APIError{Kind: lecto.KindValidationFailed, Status: 422, Response: `{"errors":{}}`}}
	svc := NewRemindExportService(lister, &fakeUploader{}, store, notifier, nil)

	id, err := svc.StartRemindsExport(context.Background(), 3, lecto.NewDate(2024, 3, 5), 9)
	require.NoError(t, err)

	final := waitFinal(t, notifier)
	assert.Equal(t, "failed", final.kind)
	assert.Contains(t, final.payload, "validation_failed")

	st, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, st.Error)
	assert.Equal(t, final.payload, *st.Error)
	assert.Nil(t, st.FileURL)
	assert.Less(t, st.Progress, 100.0)
}

func TestRemindExportService_UploadFailure(t *testing.T) {
	store := NewStatusStore(newMemCache())
	notifier := newFakeNotifier()
	uploader := &fakeUploader{err: errors.New("bucket gone")}
	svc := NewRemindExportService(&fakeReminds{reminds: sampleReminds()}, uploader, store, notifier, nil)

	_, err := svc.StartRemindsExport(context.Background(), 3, lecto.NewDate(2024, 3, 5), 9)
	require.NoError(t, err)

	final := waitFinal(t, notifier)
	assert.Equal(t, "failed", final.kind)
	assert.Contains(t, final.payload, "bucket gone")
}
