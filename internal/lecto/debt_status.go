package lecto

import "time"

type DebtStatusRequest struct {
	DebtID    string    `json:"debt_id"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	ExpireAt  time.Time `json:"expire_at"`
}

type DebtStatus struct {
	DebtID    string `json:"debt_id"`
	Status    string `json:"status"`
	StatusID  string `json:"status_id"`
	ChangedAt string `json:"changed_at"`
	ExpireAt  string `json:"expire_at"`
}
