package models

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// Complaint status lifecycle:
// submitted -> assigned -> in_progress -> admin_verification_pending -> resolved,
// with a rejection from verification returning the complaint to in_progress
// and queued_for_portal as a side branch after resolution.
const (
	StatusSubmitted           = "submitted"
	StatusAssigned            = "assigned"
	StatusInProgress          = "in_progress"
	StatusVerificationPending = "admin_verification_pending"
	StatusResolved            = "resolved"
	StatusQueuedForPortal     = "queued_for_portal"
)

// Verification status of a complaint. Anything other than "none" implies at
// least one worker report exists for the complaint.
const (
	VerificationNone     = "none"
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Closed category enumeration.
const (
	CategoryRoads   = "roads"
	CategoryWater   = "water"
	CategoryPower   = "power"
	CategoryUrban   = "urban"
	CategoryWelfare = "welfare"
	CategoryOther   = "other"
)

// Urgency levels, default medium.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// Worker report statuses.
const (
	ReportSubmitted = "submitted"
	ReportReviewed  = "reviewed"
	ReportRejected  = "rejected"
)

// Caller roles resolved by the auth middleware.
const (
	RoleAdmin   = "admin"
	RoleWorker  = "worker"
	RoleCitizen = "citizen"
)

// ValidCategory reports whether c is a member of the closed category set.
func ValidCategory(c string) bool {
	switch c {
	case CategoryRoads, CategoryWater, CategoryPower, CategoryUrban, CategoryWelfare, CategoryOther:
		return true
	}
	return false
}

// ValidUrgency reports whether u is a recognized urgency level.
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// ValidStatus reports whether s is a recognized complaint status.
func ValidStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusAssigned, StatusInProgress,
		StatusVerificationPending, StatusResolved, StatusQueuedForPortal:
		return true
	}
	return false
}

// Complaint is the central entity, tracked through a fixed lifecycle.
type Complaint struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	Category    string `json:"category"`
	Subtype     string `json:"subtype,omitempty"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`

	LocationText string            `json:"location_text,omitempty"`
	Location     *geojson.Geometry `json:"location,omitempty"`

	// Opaque blob storage keys, order preserved. Resolved to signed URLs
	// on demand, never stored as URLs.
	PhotoKeys []string `json:"photo_keys,omitempty"`

	ReporterName  string `json:"reporter_name,omitempty"`
	ReporterEmail string `json:"reporter_email,omitempty"`
	ReporterPhone string `json:"reporter_phone,omitempty"`

	Status             string     `json:"status"`
	VerificationStatus string     `json:"verification_status"`
	AssignedTo         *string    `json:"assigned_to,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy         *string    `json:"resolved_by,omitempty"`
	ResolutionNotes    string     `json:"resolution_notes,omitempty"`
	GroupName          string     `json:"group_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment is one append-only history row binding a complaint to a worker.
type Assignment struct {
	ID          int64     `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	AssignedTo  string    `json:"assigned_to"`
	AssignedBy  string    `json:"assigned_by"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkerReport is a worker's submitted findings against an assigned complaint.
type WorkerReport struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	WorkerID    string    `json:"worker_id"`
	Comments    string    `json:"comments,omitempty"`
	PhotoKeys   []string  `json:"photo_keys,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuditLogEntry is one append-only row per state-changing action.
type AuditLogEntry struct {
	Seq         int64     `json:"seq"`
	ComplaintID *string   `json:"complaint_id,omitempty"`
	Actor       string    `json:"actor"`
	Action      string    `json:"action"`
	Payload     string    `json:"payload,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Worker is a read-only roster entity owned by the identity service.
type Worker struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Active bool   `json:"active"`
}
