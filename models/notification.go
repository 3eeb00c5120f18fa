package models

// Notification event types, one per email template.
const (
	EventComplaintCreated         = "complaint_created"
	EventComplaintAssigned        = "complaint_assigned"
	EventComplaintStatusChanged   = "complaint_status_changed"
	EventComplaintSubmittedPortal = "complaint_submitted_to_portal"
	EventComplaintVerified        = "complaint_verified"
	EventComplaintRejected        = "complaint_rejected"
)

// NotificationEvent is handed to the dispatcher after a lifecycle
// transition commits. Dispatch is best-effort: transport failures are
// logged and never affect the triggering operation.
type NotificationEvent struct {
	Type      string
	Complaint Complaint

	// Recipient overrides the citizen-or-admin-list routing rule when set,
	// e.g. assignment and rejection mails addressed to a worker.
	Recipient string

	// PhotoURLs are pre-resolved signed links included in resolution mails.
	PhotoURLs []string

	// Note carries the admin's verification or rejection note, when any.
	Note string
}
