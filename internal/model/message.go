package model

// Notification is a user-facing toast produced by a write operation.
type Notification struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	LevelSuccess = "SUCCESS"
	LevelError   = "ERROR"
)
