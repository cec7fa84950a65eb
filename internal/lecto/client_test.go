package lecto

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "apikey"

func strPtr(s string) *string { return &s }

func debtorRequestSample() DebtorRequest {
	birth := NewDate(1999, time.January, 1)
	return DebtorRequest{
		DebtorID:     "test-external-id",
		Name:         "Name",
		NameKana:     "Kana",
		BirthDate:    &birth,
		Gender:       GenderMale,
		Email:        "sample@example.com",
		Address:      "Tokyo xx-ku x-x-x",
		KycDone:      true,
		PostalCode:   "3336666",
		PhoneNumber:  "0312345678",
		MobileNumber: "09012345678",
	}
}

func debtRequestSample() DebtRequest {
	fee := uint64(540)
	return DebtRequest{
		DebtID:         "1234-4321",
		DebtorID:       "5678",
		DealtAt:        "2021-12-01T12:13:00+09:00",
		DebtAmount:     7400,
		DebtFee:        &fee,
		RepaymentDueAt: "2022-03-01T23:59:59+09:00",
		Appendix:       strPtr("item_name:laptop total_amount:15240"),
		RemindSegments: []string{"y2021"},
		Partner:        &Partner{ID: "1234-5678", Name: "Partner shop"},
	}
}

func debtStatusRequestSample() DebtStatusRequest {
	jst := time.FixedZone("JST", 9*60*60)
	return DebtStatusRequest{
		DebtID:    "1234-5678",
		Status:    "repaid",
		ChangedAt: time.Date(2021, 11, 15, 12, 34, 0, 0, jst),
		ExpireAt:  time.Date(9999, 12, 31, 23, 59, 59, 0, jst),
	}
}

const debtorResponse = `{
  "id": 111,
  "debtor_id": "test-external-id",
  "basic_information": {"name": "name", "name_kana": "name kana", "birth_date": "1999-01-01", "gender": "male"},
  "email": {"email": "sample@example.com"},
  "address": {"address": "Tokyo xx-ku x-x-x", "kyc_done": true, "postal_code": "3336666"},
  "phone_number": {"phone_number": "0312345678", "mobile_number": "09012345678"}
}`

const debtResponse = `{
  "id": 1,
  "debt_id": "debt id",
  "debtor_id": "debtor id",
  "dealt_at": "2021-01-01T10:00:00Z",
  "debt_amount": 100,
  "debt_fee": 0,
  "repayment_due_at": "2021-01-01T10:00:00Z",
  "appendix": "aaaaa",
  "remind_segments": [{"name": "seg-1"}, {"name": "seg-2"}]
}`

const debtStatusResponse = `{
  "debt_id": "debt id",
  "changed_at": "2021-01-01T10:00:00Z",
  "expire_at": "2021-01-01T10:00:00Z",
  "status": "repaid",
  "status_id": "LECTO-400"
}`

type recordedRequest struct {
	method string
	path   string
	query  map[string][]string
	auth   string
	ctype  string
	body   string
}

// lectoStub answers every request with status/body and records what it got.
func lectoStub(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var got []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = append(got, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			auth:   r.Header.Get("Authorization"),
			ctype:  r.Header.Get("Content-Type"),
			body:   string(b),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &got
}

func newTestClient(baseURL string, maxAttempts int) *Client {
	return NewClient(Config{
		APIKey:      testAPIKey,
		BaseURL:     baseURL,
		MaxAttempts: maxAttempts,
		Timeout:     5 * time.Second,
	}, WithBackoff(5*time.Millisecond))
}

func TestCreateDebtor(t *testing.T) {
	srv, got := lectoStub(t, http.StatusOK, debtorResponse)
	client := newTestClient(srv.URL, 1)
	req := debtorRequestSample()

	debtor, err := client.CreateDebtor(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, *got, 1)
	rec := (*got)[0]
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/debtors", rec.path)
	assert.Equal(t, "Bearer "+testAPIKey, rec.auth)
	assert.Equal(t, "application/json", rec.ctype)

	wantBody, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantBody), rec.body)

	birth := NewDate(1999, time.January, 1)
	assert.Equal(t, &Debtor{
		ID:       111,
		DebtorID: "test-external-id",
		BasicInformation: DebtorBasicInformation{
			Name:      "name",
			NameKana:  strPtr("name kana"),
			BirthDate: &birth,
			Gender:    GenderMale,
		},
		Email:       DebtorEmail{Email: "sample@example.com"},
		Address:     DebtorAddress{Address: "Tokyo xx-ku x-x-x", KycDone: true, PostalCode: strPtr("3336666")},
		PhoneNumber: DebtorPhoneNumber{PhoneNumber: strPtr("0312345678"), MobileNumber: strPtr("09012345678")},
	}, debtor)
}

func TestCreateDebtor_TrailingSlashBaseURL(t *testing.T) {
	srv, got := lectoStub(t, http.StatusCreated, debtorResponse)
	client := newTestClient(srv.URL+"/", 1)

	_, err := client.CreateDebtor(context.Background(), debtorRequestSample())
	require.NoError(t, err)
	assert.Equal(t, "/debtors", (*got)[0].path)
}

func TestCreateDebtor_ClassifiedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
		kind   ErrorKind
	}{
		{"validation", http.StatusUnprocessableEntity, ErrValidationFailed, KindValidationFailed},
		{"bad request", http.StatusBadRequest, ErrBadRequest, KindBadRequest},
		{"server fault", http.StatusInternalServerError, ErrServerFault, KindServerFault},
		{"unknown", http.StatusTeapot, ErrUnknown, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := lectoStub(t, tt.status, `{"errors":["nope"]}`)
			client := newTestClient(srv.URL, 3)
			req := debtorRequestSample()

			debtor, err := client.CreateDebtor(context.Background(), req)

			assert.Nil(t, debtor)
			require.ErrorIs(t, err, tt.target)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, `{"errors":["nope"]}`, apiErr.Response)
			assert.Contains(t, apiErr.Request, `"debtor_id":"test-external-id"`)

			// HTTP-level errors are never retried
			assert.Len(t, *got, 1)
		})
	}
}

func TestCreateDebtor_DecodeError(t *testing.T) {
	srv, _ := lectoStub(t, http.StatusOK, `{"id": "not a number"`)
	client := newTestClient(srv.URL, 1)

	_, err := client.CreateDebtor(context.Background(), debtorRequestSample())

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, http.StatusOK, decodeErr.Status)
	_, isAPI := KindOf(err)
	assert.False(t, isAPI)
}

func TestCreateDebtor_TransportError(t *testing.T) {
	// grab a free port and close it so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := newTestClient("http://"+addr, 1)

	_, err = client.CreateDebtor(context.Background(), debtorRequestSample())

	require.Error(t, err)
	var opErr *net.OpError
	assert.ErrorAs(t, err, &opErr)
	_, isAPI := KindOf(err)
	assert.False(t, isAPI)
}

func TestCreateDebtor_TimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		_, _ = io.WriteString(w, debtorResponse)
	}))
	defer srv.Close()

	client := NewClient(Config{
		APIKey:      testAPIKey,
		BaseURL:     srv.URL,
		MaxAttempts: 2,
		Timeout:     100 * time.Millisecond,
	}, WithBackoff(5*time.Millisecond))

	debtor, err := client.CreateDebtor(context.Background(), debtorRequestSample())

	require.NoError(t, err)
	assert.Equal(t, uint64(111), debtor.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateDebt(t *testing.T) {
	srv, got := lectoStub(t, http.StatusOK, debtResponse)
	client := newTestClient(srv.URL, 1)
	req := debtRequestSample()

	debt, err := client.CreateDebt(context.Background(), req)
	require.NoError(t, err)

	rec := (*got)[0]
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/debts", rec.path)
	assert.JSONEq(t, `{
		"debt_id":"1234-4321","debtor_id":"5678","dealt_at":"2021-12-01T12:13:00+09:00",
		"debt_amount":7400,"debt_fee":540,"repayment_due_at":"2022-03-01T23:59:59+09:00",
		"appendix":"item_name:laptop total_amount:15240","remind_segments":["y2021"],
		"partner":{"id":"1234-5678","name":"Partner shop"}
	}`, rec.body)

	zero := int64(0)
	assert.Equal(t, &Debt{
		ID:             1,
		DebtID:         "debt id",
		DebtorID:       "debtor id",
		DealtAt:        "2021-01-01T10:00:00Z",
		DebtAmount:     100,
		DebtFee:        &zero,
		RepaymentDueAt: "2021-01-01T10:00:00Z",
		Appendix:       "aaaaa",
		RemindSegments: []Segment{{Name: "seg-1"}, {Name: "seg-2"}},
	}, debt)
}

func TestCreateDebt_ValidationError(t *testing.T) {
	srv, _ := lectoStub(t, http.StatusUnprocessableEntity, `{"errors":["UnprocessableEntity"]}`)
	client := newTestClient(srv.URL, 1)

	_, err := client.CreateDebt(context.Background(), debtRequestSample())

	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestUpdateDebtStatus(t *testing.T) {
	srv, got := lectoStub(t, http.StatusOK, debtStatusResponse)
	client := newTestClient(srv.URL, 1)

	status, err := client.UpdateDebtStatus(context.Background(), debtStatusRequestSample())
	require.NoError(t, err)

	rec := (*got)[0]
	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, "/debt_statuses", rec.path)
	assert.JSONEq(t,
		`{"debt_id":"1234-5678","status":"repaid","changed_at":"2021-11-15T12:34:00+09:00","expire_at":"9999-12-31T23:59:59+09:00"}`,
		rec.body)

	assert.Equal(t, &DebtStatus{
		DebtID:    "debt id",
		Status:    "repaid",
		StatusID:  "LECTO-400",
		ChangedAt: "2021-01-01T10:00:00Z",
		ExpireAt:  "2021-01-01T10:00:00Z",
	}, status)
}

func TestUpdateDebtStatus_ValidationError(t *testing.T) {
	srv, _ := lectoStub(t, http.StatusUnprocessableEntity, `{"errors":["UnprocessableEntity"]}`)
	client := newTestClient(srv.URL, 1)

	_, err := client.UpdateDebtStatus(context.Background(), debtStatusRequestSample())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
}

func TestListReminds(t *testing.T) {
	body, err := os.ReadFile("testdata/reminds.json")
	require.NoError(t, err)

	srv, got := lectoStub(t, http.StatusOK, string(body))
	client := newTestClient(srv.URL, 1)

	reminds, err := client.ListReminds(context.Background(), 1, NewDate(2022, time.February, 2))
	require.NoError(t, err)

	rec := (*got)[0]
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/remind_groups/1/reminds", rec.path)
	assert.Equal(t, "Bearer "+testAPIKey, rec.auth)
	assert.Equal(t, []string{"2022-02-02"}, rec.query["remind_at"])
	assert.Equal(t, []string{"true"}, rec.query["ignore_remind_group_status"])
	assert.Empty(t, rec.body)

	require.Len(t, reminds, 2)
	first := reminds[0]
	assert.Equal(t, "test external id3---2022-03", first.Label)
	assert.Equal(t, "test external id3", first.Debtor.DebtorID)
	assert.Nil(t, first.Debtor.BasicInformation.BirthDate)
	require.Len(t, first.Debts, 2)
	assert.Equal(t, "17000", first.Debts[0].AppendixParsed["total_amount"])
	assert.Equal(t, []Segment{{Name: "AAA"}}, first.Debts[1].RemindSegments)

	second := reminds[1]
	require.NotNil(t, second.Debtor.BasicInformation.BirthDate)
	assert.Equal(t, "1990-05-01", second.Debtor.BasicInformation.BirthDate.String())
	assert.Nil(t, second.Debts[0].DebtFee)
}

func TestListReminds_AlwaysIgnoresGroupStatus(t *testing.T) {
	srv, got := lectoStub(t, http.StatusOK, `[]`)
	client := newTestClient(srv.URL, 1)

	for _, d := range []Date{NewDate(2020, time.January, 1), NewDate(2030, time.December, 31)} {
		reminds, err := client.ListReminds(context.Background(), 42, d)
		require.NoError(t, err)
		assert.Empty(t, reminds)
	}

	require.Len(t, *got, 2)
	for _, rec := range *got {
		assert.Equal(t, "/remind_groups/42/reminds", rec.path)
		assert.Equal(t, []string{"true"}, rec.query["ignore_remind_group_status"])
	}
	assert.Equal(t, []string{"2030-12-31"}, (*got)[1].query["remind_at"])
}

func TestListReminds_ServerFaultHasEmptyRequest(t *testing.T) {
	srv, _ := lectoStub(t, http.StatusInternalServerError, `oops`)
	client := newTestClient(srv.URL, 1)

	_, err := client.ListReminds(context.Background(), 7, NewDate(2022, time.March, 1))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServerFault, apiErr.Kind)
	assert.Empty(t, apiErr.Request)
	assert.Equal(t, "oops", apiErr.Response)
}
