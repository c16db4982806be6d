package api

import (
	"time"

	"qbridge/internal/questions"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Question is the wire form of a pending question.
type Question = questions.Question

// Answer is the wire form of a reply.
type Answer = questions.Answer

// ChangeEvent is one frame of the change feed.
type ChangeEvent = questions.Event

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// QuestionsError tags failures of the question service so clients can tell
// them apart from transport errors.
type QuestionsError struct {
	Err error
}

func (e *QuestionsError) Error() string {
	if e.Err == nil {
		return "Question service error"
	}
	return "Question service error: " + e.Err.Error()
}

func (e *QuestionsError) Unwrap() error { return e.Err }

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	LockFilePath string `json:"lockFilePath"`
	APIAddress   string `json:"apiAddress,omitempty"`
	Bus          string `json:"bus"`
	Service      string `json:"service"`
	RootPath     string `json:"rootPath"`
	StartedAt    string `json:"startedAt,omitempty"`
	Watchers     int    `json:"watchers"`
}

// FormatTimestamp renders t the way every API payload does, or "" for the
// zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
