// Package service implements the complaint lifecycle state machine: it
// validates transitions, performs the canonical mutation through the store,
// then writes the audit entry (must succeed) and hands off notifications
// (best-effort) in that order.
package service

import (
	"context"
	"fmt"
	"time"

	"complaints-service/apperrors"
	"complaints-service/models"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// Store is the data-store surface the lifecycle core depends on.
// *database.ComplaintService satisfies it; tests substitute fakes.
type Store interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	UpdateComplaintFields(ctx context.Context, id string, changes map[string]string, expected *time.Time) (*models.Complaint, error)
	AssignComplaint(ctx context.Context, complaintID, workerID, assignedBy, note string) (*models.Complaint, *models.Assignment, error)
	CreateWorkerReport(ctx context.Context, rep *models.WorkerReport) (*models.Complaint, error)
	GetWorkerReport(ctx context.Context, id string) (*models.WorkerReport, error)
	VerifyResolution(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error)
	RejectResolution(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error)
	MarkQueuedForPortal(ctx context.Context, complaintID string) (*models.Complaint, error)
	DeleteComplaint(ctx context.Context, complaintID string) error
	GetWorker(ctx context.Context, id string) (*models.Worker, error)
}

// AuditRecorder appends immutable audit entries. A failed append fails the
// whole operation.
type AuditRecorder interface {
	Record(ctx context.Context, complaintID, actor, action string, payload any) error
}

// Notifier accepts notification events for asynchronous best-effort
// delivery. Enqueue must never block the caller.
type Notifier interface {
	Enqueue(event models.NotificationEvent)
}

// PhotoResolver turns opaque storage keys into time-limited read URLs.
type PhotoResolver interface {
	ResolveAll(ctx context.Context, keys []string) []string
}

// LifecycleService is the complaint lifecycle core.
type LifecycleService struct {
	store    Store
	audit    AuditRecorder
	notifier Notifier
	photos   PhotoResolver
}

// NewLifecycleService creates the lifecycle core with its collaborators.
func NewLifecycleService(store Store, audit AuditRecorder, notifier Notifier, photos PhotoResolver) *LifecycleService {
	return &LifecycleService{
		store:    store,
		audit:    audit,
		notifier: notifier,
		photos:   photos,
	}
}

// Submit creates a complaint in the submitted state.
func (s *LifecycleService) Submit(ctx context.Context, req models.SubmitComplaintRequest, actor string) (*models.Complaint, error) {
	if req.Category == "" {
		return nil, apperrors.Validationf("category is required")
	}
	if !models.ValidCategory(req.Category) {
		return nil, apperrors.Validationf("unknown category %q", req.Category)
	}
	if req.Description == "" {
		return nil, apperrors.Validationf("description is required")
	}
	if req.Urgency != "" && !models.ValidUrgency(req.Urgency) {
		return nil, apperrors.Validationf("unknown urgency %q", req.Urgency)
	}

	c := &models.Complaint{
		Category:      req.Category,
		Subtype:       req.Subtype,
		Description:   req.Description,
		Urgency:       req.Urgency,
		LocationText:  req.LocationText,
		Location:      req.Location,
		PhotoKeys:     req.PhotoKeys,
		ReporterName:  req.ReporterName,
		ReporterEmail: req.ReporterEmail,
		ReporterPhone: req.ReporterPhone,
	}
	if err := s.store.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}

	if err := s.recordAudit(ctx, c.ID, actor, models.ActionComplaintSubmitted, models.SubmittedPayload{
		Token:    c.Token,
		Category: c.Category,
		Urgency:  c.Urgency,
	}); err != nil {
		return nil, err
	}

	if c.ReporterEmail != "" {
		s.notifier.Enqueue(models.NotificationEvent{
			Type:      models.EventComplaintCreated,
			Complaint: *c,
		})
	}

	return c, nil
}

// Allow-listed patchable complaint columns for UpdateFields.
var patchableFields = map[string]bool{
	"urgency":       true,
	"status":        true,
	"description":   true,
	"category":      true,
	"subtype":       true,
	"location_text": true,
	"group_name":    true,
}

// UpdateFields applies a generic admin patch. The patch is an escape hatch
// that may force-overwrite any state; every override is audited with the
// prior value.
func (s *LifecycleService) UpdateFields(ctx context.Context, complaintID string, req models.UpdateFieldsRequest, actor string) (*models.Complaint, error) {
	if len(req.Fields) == 0 {
		return nil, apperrors.Validationf("no fields to update")
	}
	for field, value := range req.Fields {
		if !patchableFields[field] {
			return nil, apperrors.Validationf("field %q is not updatable", field)
		}
		switch field {
		case "urgency":
			if !models.ValidUrgency(value) {
				return nil, apperrors.Validationf("unknown urgency %q", value)
			}
		case "status":
			if !models.ValidStatus(value) {
				return nil, apperrors.Validationf("unknown status %q", value)
			}
		case "category":
			if !models.ValidCategory(value) {
				return nil, apperrors.Validationf("unknown category %q", value)
			}
		}
	}

	before, err := s.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateComplaintFields(ctx, complaintID, req.Fields, req.ExpectedUpdatedAt)
	if err != nil {
		return nil, err
	}

	changes := map[string]models.FieldChange{}
	beforeValues := map[string]string{
		"urgency":       before.Urgency,
		"status":        before.Status,
		"description":   before.Description,
		"category":      before.Category,
		"subtype":       before.Subtype,
		"location_text": before.LocationText,
		"group_name":    before.GroupName,
	}
	for field, value := range req.Fields {
		if beforeValues[field] != value {
			changes[field] = models.FieldChange{Before: beforeValues[field], After: value}
		}
	}

	action := models.ActionUpdateFields
	if len(changes) == 1 {
		if _, ok := changes["urgency"]; ok {
			action = models.ActionUpdateUrgency
		}
		if _, ok := changes["status"]; ok {
			action = models.ActionUpdateStatus
		}
	}
	if err := s.recordAudit(ctx, complaintID, actor, action, models.UpdatePayload{Changes: changes}); err != nil {
		return nil, err
	}

	if _, ok := changes["status"]; ok && updated.ReporterEmail != "" {
		s.notifier.Enqueue(models.NotificationEvent{
			Type:      models.EventComplaintStatusChanged,
			Complaint: *updated,
		})
	}

	return updated, nil
}

// BulkApply applies one action to each complaint independently. A failure
// on one id never aborts the others; the result reports per-id outcomes.
func (s *LifecycleService) BulkApply(ctx context.Context, req models.BulkRequest, actor string) (*models.BulkResult, error) {
	switch req.Action {
	case models.BulkActionDelete:
	case models.BulkActionSetUrgency:
		if !models.ValidUrgency(req.Urgency) {
			return nil, apperrors.Validationf("unknown urgency %q", req.Urgency)
		}
	case models.BulkActionGroup:
		if req.GroupName == "" {
			return nil, apperrors.Validationf("group_name is required for group action")
		}
	default:
		return nil, apperrors.Validationf("unknown bulk action %q", req.Action)
	}

	result := &models.BulkResult{Errors: map[string]string{}}
	for _, id := range req.IDs {
		if err := s.applyBulkItem(ctx, req, id, actor); err != nil {
			log.Warnf("Bulk %s failed for complaint %s: %v", req.Action, id, err)
			result.Failed++
			result.Errors[id] = err.Error()
			continue
		}
		result.Updated++
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

func (s *LifecycleService) applyBulkItem(ctx context.Context, req models.BulkRequest, id, actor string) error {
	switch req.Action {
	case models.BulkActionDelete:
		if err := s.store.DeleteComplaint(ctx, id); err != nil {
			return err
		}
		return s.recordAudit(ctx, id, actor, models.ActionBulkDelete, nil)
	case models.BulkActionSetUrgency:
		if _, err := s.store.UpdateComplaintFields(ctx, id, map[string]string{"urgency": req.Urgency}, nil); err != nil {
			return err
		}
		return s.recordAudit(ctx, id, actor, models.ActionBulkSetUrgency, models.BulkItemPayload{Urgency: req.Urgency})
	case models.BulkActionGroup:
		if _, err := s.store.UpdateComplaintFields(ctx, id, map[string]string{"group_name": req.GroupName}, nil); err != nil {
			return err
		}
		return s.recordAudit(ctx, id, actor, models.ActionBulkGroup, models.BulkItemPayload{GroupName: req.GroupName})
	}
	return fmt.Errorf("unreachable bulk action %q", req.Action)
}

// QueueForPortal marks a resolved complaint for manual export to the
// municipal portal and returns a synthetic job id. There is no real queue.
func (s *LifecycleService) QueueForPortal(ctx context.Context, complaintID, actor string) (*models.PortalJob, *models.Complaint, error) {
	updated, err := s.store.MarkQueuedForPortal(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}

	job := &models.PortalJob{
		JobID:       "portal-" + uuid.New().String(),
		ComplaintID: complaintID,
	}
	if err := s.recordAudit(ctx, complaintID, actor, models.ActionSubmitToPortal, models.PortalPayload{JobID: job.JobID}); err != nil {
		return nil, nil, err
	}

	s.notifier.Enqueue(models.NotificationEvent{
		Type:      models.EventComplaintSubmittedPortal,
		Complaint: *updated,
	})

	return job, updated, nil
}

// recordAudit escalates an audit write failure to a TransientError on the
// whole operation, even though the primary row change may have persisted.
func (s *LifecycleService) recordAudit(ctx context.Context, complaintID, actor, action string, payload any) error {
	if err := s.audit.Record(ctx, complaintID, actor, action, payload); err != nil {
		log.Errorf("Audit write for %s on complaint %s failed: %v", action, complaintID, err)
		return apperrors.Transient("audit log write failed", err)
	}
	return nil
}
