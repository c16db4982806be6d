package ipc

import "qbridge/internal/api"

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse reports whether the stop was accepted.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest requests daemon status.
type StatusRequest struct{}

// StatusResponse mirrors api.DaemonStatus for socket clients.
type StatusResponse struct {
	Running    bool   `json:"running"`
	PID        int    `json:"pid"`
	LockPath   string `json:"lock_path"`
	APIAddress string `json:"api_address"`
	Bus        string `json:"bus"`
	Service    string `json:"service"`
	RootPath   string `json:"root_path"`
	StartedAt  string `json:"started_at"`
	Watchers   int    `json:"watchers"`
}

// ListQuestionsRequest requests every pending question.
type ListQuestionsRequest struct{}

// ListQuestionsResponse carries the pending questions.
type ListQuestionsResponse struct {
	Questions []api.Question `json:"questions"`
}

// AnswerRequest submits an answer to one question.
type AnswerRequest struct {
	ID     uint32     `json:"id"`
	Answer api.Answer `json:"answer"`
}

// AnswerResponse acknowledges a submitted answer.
type AnswerResponse struct {
	Message string `json:"message"`
}

// TestNotificationRequest asks the daemon to publish a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether a notification went out.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
