package service

import (
	"context"

	"complaints-service/apperrors"
	"complaints-service/models"
)

// Assign binds the complaint to a worker. The complaint's assigned_to
// pointer is the single source of truth for who may report; history rows
// are additive only. Re-assignment is permitted and immediately revokes
// the prior assignee's report rights.
func (s *LifecycleService) Assign(ctx context.Context, complaintID, workerID, assignedBy, note string) (*models.Complaint, *models.Assignment, error) {
	before, err := s.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}

	worker, err := s.store.GetWorker(ctx, workerID)
	if err != nil {
		return nil, nil, err
	}
	if !worker.Active {
		return nil, nil, apperrors.Validationf("worker %s is not active", workerID)
	}

	updated, assignment, err := s.store.AssignComplaint(ctx, complaintID, workerID, assignedBy, note)
	if err != nil {
		return nil, nil, err
	}

	payload := models.AssignPayload{WorkerID: workerID, Note: note}
	if before.AssignedTo != nil {
		payload.PrevAssignee = *before.AssignedTo
	}
	if err := s.recordAudit(ctx, complaintID, assignedBy, models.ActionAssignComplaint, payload); err != nil {
		return nil, nil, err
	}

	if worker.Email != "" {
		s.notifier.Enqueue(models.NotificationEvent{
			Type:      models.EventComplaintAssigned,
			Complaint: *updated,
			Recipient: worker.Email,
			Note:      note,
		})
	}

	return updated, assignment, nil
}
