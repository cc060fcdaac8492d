package model

// RequestView is one rendered row of the tracking list.
type RequestView struct {
	Kind          Kind    `json:"kind"`
	ID            string  `json:"id"`
	Purpose       string  `json:"purpose"`
	RawStatus     string  `json:"raw_status"`
	Status        Status  `json:"status"`
	Payment       Payment `json:"payment"`
	RequestedAt   string  `json:"requested_at,omitempty"`
	CompletedAt   string  `json:"completed_at,omitempty"`
	PaidAt        string  `json:"paid_at,omitempty"`
	DeclineReason string  `json:"decline_reason,omitempty"`
	CanCancel     bool    `json:"can_cancel"`
	Cancelling    bool    `json:"cancelling"`
}

type ListResponse struct {
	ResidentID string        `json:"resident_id"`
	Tab        Kind          `json:"tab"`
	Status     string        `json:"status"`
	Payment    string        `json:"payment"`
	Search     string        `json:"search"`
	PageSize   int           `json:"page_size"`
	Counts     map[Kind]int  `json:"counts"`
	Total      int           `json:"total"`
	HasMore    bool          `json:"has_more"`
	Items      []RequestView `json:"items"`
}

type CancelResponse struct {
	Kind         Kind         `json:"kind"`
	ID           string       `json:"id"`
	State        string       `json:"state"`
	Notification Notification `json:"notification"`
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
