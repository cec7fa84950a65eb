package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"lecto-bridge/internal/lecto"
	"lecto-bridge/internal/repository"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type RemindExportRequest struct {
	RemindGroupID uint64
	RemindAt      lecto.Date
}

type rawRemindExportRequest struct {
	RemindGroupID any `json:"remind_group_id"`
	RemindAt      any `json:"remind_at"`
}

func ValidateRemindExportRequest(r *http.Request) (*RemindExportRequest, error) {
	var raw rawRemindExportRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	groupID, err := toInt64Ptr(raw.RemindGroupID)
	if err != nil || groupID == nil || *groupID <= 0 {
		return nil, &ValidationError{Field: "remind_group_id", Message: "remind_group_id is required and must be a positive integer"}
	}

	dateStr, ok := raw.RemindAt.(string)
	if !ok || dateStr == "" {
		return nil, &ValidationError{Field: "remind_at", Message: "remind_at is required"}
	}
	remindAt, err := lecto.ParseDate(dateStr)
	if err != nil {
		return nil, &ValidationError{Field: "remind_at", Message: "remind_at must be YYYY-MM-DD"}
	}

	return &RemindExportRequest{
		RemindGroupID: uint64(*groupID),
		RemindAt:      remindAt,
	}, nil
}

type rawSyncRequest struct {
	RegistryID     any `json:"registry_id"`
	CounterpartyID any `json:"counterparty_id"`
	StatusID       any `json:"status_id"`
	Limit          any `json:"limit"`
}

// ValidateSyncRequest accepts an empty body, meaning every debt.
func ValidateSyncRequest(r *http.Request) (*repository.DebtsFilter, error) {
	var raw rawSyncRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	registryID, err := toStringPtr(raw.RegistryID)
	if err != nil {
		return nil, &ValidationError{Field: "registry_id", Message: "registry_id must be string or empty"}
	}

	counterpartyID, err := toStringPtr(raw.CounterpartyID)
	if err != nil {
		return nil, &ValidationError{Field: "counterparty_id", Message: "counterparty_id must be string or empty"}
	}

	statusID, err := toInt64Ptr(raw.StatusID)
	if err != nil {
		return nil, &ValidationError{Field: "status_id", Message: "status_id must be integer or empty"}
	}

	limit, err := toInt64Ptr(raw.Limit)
	if err != nil || (limit != nil && *limit < 0) {
		return nil, &ValidationError{Field: "limit", Message: "limit must be a non-negative integer"}
	}

	f := &repository.DebtsFilter{
		RegistryID:     registryID,
		CounterpartyID: counterpartyID,
		StatusID:       statusID,
	}
	if limit != nil {
		f.Limit = int(*limit)
	}
	return f, nil
}

func toStringPtr(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return &t, nil
	case float64:
		s := strconv.FormatInt(int64(t), 10)
		return &s, nil
	default:
		return nil, &ValidationError{Message: "invalid type for string field"}
	}
}

func toInt64Ptr(v any) (*int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if t != float64(int64(t)) {
			return nil, &ValidationError{Message: "not an integer"}
		}
		i := int64(t)
		return &i, nil
	case string:
		if t == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, err
		}
		return &i, nil
	default:
		return nil, &ValidationError{Message: "invalid type for int field"}
	}
}
