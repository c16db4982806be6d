package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType tags a log line with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldQuestionID is the standardized key for remote question identifiers.
	FieldQuestionID = "question_id"
	// FieldObjectPath is the standardized key for D-Bus object paths.
	FieldObjectPath = "object_path"
	// FieldInterface is the standardized key for D-Bus interface names.
	FieldInterface = "interface"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldSessionID groups the log lines of one diagnostic daemon run.
	FieldSessionID = "session_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
