package service

import (
	"context"

	"complaints-service/apperrors"
	"complaints-service/models"
)

// SubmitReport accepts a worker's findings against an assigned complaint.
// Only the current assignee may report; the store re-checks the assignment
// inside the write transaction so a racing reassignment loses cleanly.
func (s *LifecycleService) SubmitReport(ctx context.Context, complaintID, workerID string, req models.SubmitWorkerReportRequest) (*models.WorkerReport, *models.Complaint, error) {
	if req.Comments == "" && len(req.PhotoKeys) == 0 {
		return nil, nil, apperrors.Validationf("report needs comments or at least one photo")
	}

	c, err := s.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}
	if c.AssignedTo == nil || *c.AssignedTo != workerID {
		return nil, nil, apperrors.Forbiddenf("complaint %s is not assigned to worker %s", complaintID, workerID)
	}

	rep := &models.WorkerReport{
		ComplaintID: complaintID,
		WorkerID:    workerID,
		Comments:    req.Comments,
		PhotoKeys:   req.PhotoKeys,
	}
	updated, err := s.store.CreateWorkerReport(ctx, rep)
	if err != nil {
		return nil, nil, err
	}

	if err := s.recordAudit(ctx, complaintID, workerID, models.ActionSubmitReport, models.ReportPayload{
		ReportID:   rep.ID,
		PhotoCount: len(rep.PhotoKeys),
	}); err != nil {
		return nil, nil, err
	}

	return rep, updated, nil
}
