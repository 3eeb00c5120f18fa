package models

// Audit action taxonomy. Every state-changing operation appends exactly one
// entry per call under one of these names.
const (
	ActionComplaintSubmitted = "complaint_submitted"
	ActionAssignComplaint    = "assign_complaint"
	ActionSubmitReport       = "submit_report"
	ActionVerifyResolution   = "verify_resolution"
	ActionRejectResolution   = "reject_resolution"
	ActionUpdateUrgency      = "update_urgency"
	ActionUpdateStatus       = "update_status"
	ActionUpdateFields       = "update_fields"
	ActionBulkDelete         = "bulk_delete"
	ActionBulkSetUrgency     = "bulk_set_urgency"
	ActionBulkGroup          = "bulk_group"
	ActionSubmitToPortal     = "submit_to_portal"
)

// Audit payloads form a tagged union keyed by action name: each action has a
// statically known payload shape, serialized to JSON in the payload column.

// SubmittedPayload accompanies complaint_submitted.
type SubmittedPayload struct {
	Token    string `json:"token"`
	Category string `json:"category"`
	Urgency  string `json:"urgency"`
}

// AssignPayload accompanies assign_complaint.
type AssignPayload struct {
	WorkerID     string `json:"worker_id"`
	Note         string `json:"note,omitempty"`
	PrevAssignee string `json:"prev_assignee,omitempty"`
}

// ReportPayload accompanies submit_report.
type ReportPayload struct {
	ReportID   string `json:"report_id"`
	PhotoCount int    `json:"photo_count"`
}

// VerdictPayload accompanies verify_resolution and reject_resolution.
type VerdictPayload struct {
	ReportID string `json:"report_id,omitempty"`
	Note     string `json:"note,omitempty"`
}

// FieldChange records one field's before and after values.
type FieldChange struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// UpdatePayload accompanies update_urgency, update_status and update_fields.
// Force overwrites through the field patch escape hatch are recorded here
// with their prior values.
type UpdatePayload struct {
	Changes map[string]FieldChange `json:"changes"`
}

// BulkItemPayload accompanies the per-complaint bulk_* entries.
type BulkItemPayload struct {
	Urgency   string `json:"urgency,omitempty"`
	GroupName string `json:"group_name,omitempty"`
}

// PortalPayload accompanies submit_to_portal.
type PortalPayload struct {
	JobID string `json:"job_id"`
}
