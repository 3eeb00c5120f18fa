package models

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// SubmitComplaintRequest is the citizen submission payload.
type SubmitComplaintRequest struct {
	Category    string `json:"category"`
	Subtype     string `json:"subtype"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`

	LocationText string            `json:"location_text"`
	Location     *geojson.Geometry `json:"location"`
	PhotoKeys    []string          `json:"photo_keys"`

	ReporterName  string `json:"reporter_name"`
	ReporterEmail string `json:"reporter_email"`
	ReporterPhone string `json:"reporter_phone"`
}

// UploadRequest asks for a write-capable upload target for one photo.
type UploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// AssignRequest binds a complaint to a worker.
type AssignRequest struct {
	WorkerID string `json:"worker_id" binding:"required"`
	Note     string `json:"note"`
}

// SubmitWorkerReportRequest carries a worker's findings.
type SubmitWorkerReportRequest struct {
	Comments  string   `json:"comments"`
	PhotoKeys []string `json:"photo_keys"`
}

// VerifyRequest accepts or rejects a worker report.
type VerifyRequest struct {
	ReportID string `json:"report_id"`
	Note     string `json:"note"`
}

// UpdateFieldsRequest is a generic admin patch. Fields is validated
// against an explicit allow-list; unknown keys are rejected.
// ExpectedUpdatedAt, when set, turns the patch into a conditional write:
// a stale timestamp fails with a conflict instead of clobbering a
// concurrent update.
type UpdateFieldsRequest struct {
	Fields            map[string]string `json:"fields" binding:"required"`
	ExpectedUpdatedAt *time.Time        `json:"expected_updated_at"`
}

// Bulk actions.
const (
	BulkActionDelete     = "delete"
	BulkActionSetUrgency = "set_urgency"
	BulkActionGroup      = "group"
)

// BulkRequest applies one action to each listed complaint independently.
type BulkRequest struct {
	Action string   `json:"action" binding:"required"`
	IDs    []string `json:"ids" binding:"required,min=1"`

	// Payload for set_urgency and group.
	Urgency   string `json:"urgency"`
	GroupName string `json:"group_name"`
}

// BulkResult reports per-item outcomes; partial success is a first-class
// result, not an error.
type BulkResult struct {
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ComplaintFilter narrows complaint listings.
type ComplaintFilter struct {
	Status     string
	Category   string
	GroupName  string
	AssignedTo string
	Limit      int
	Offset     int
}

// PortalJob is the synthetic result of queueing a complaint for the
// external portal. There is no real queue behind it.
type PortalJob struct {
	JobID       string `json:"job_id"`
	ComplaintID string `json:"complaint_id"`
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
