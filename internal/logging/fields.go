package logging

// Shared attribute keys so log lines stay greppable across components.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldEvent     = "event"
	FieldStage     = "stage"
	FieldEventType = "event_type"
	FieldRequestID = "request_id"
)
