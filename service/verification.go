package service

import (
	"context"

	"complaints-service/models"

	"github.com/apex/log"
)

// Verify accepts a worker report and resolves the complaint. Idempotent in
// effect: verifying twice leaves the complaint resolved both times, but
// each call appends its own audit entry and attempts its own notification.
func (s *LifecycleService) Verify(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error) {
	updated, err := s.store.VerifyResolution(ctx, complaintID, reportID, adminID, note)
	if err != nil {
		return nil, err
	}

	if err := s.recordAudit(ctx, complaintID, adminID, models.ActionVerifyResolution, models.VerdictPayload{
		ReportID: reportID,
		Note:     note,
	}); err != nil {
		return nil, err
	}

	var photoURLs []string
	if reportID != "" {
		if rep, err := s.store.GetWorkerReport(ctx, reportID); err != nil {
			log.Warnf("Could not load report %s for resolution mail: %v", reportID, err)
		} else if len(rep.PhotoKeys) > 0 {
			photoURLs = s.photos.ResolveAll(ctx, rep.PhotoKeys)
		}
	}

	s.notifier.Enqueue(models.NotificationEvent{
		Type:      models.EventComplaintVerified,
		Complaint: *updated,
		PhotoURLs: photoURLs,
		Note:      note,
	})

	return updated, nil
}

// Reject sends a reported complaint back to in_progress. Symmetric to
// Verify; the rejection mail goes to the report's worker when they have an
// email on the roster.
func (s *LifecycleService) Reject(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error) {
	var workerID string
	if reportID != "" {
		rep, err := s.store.GetWorkerReport(ctx, reportID)
		if err != nil {
			return nil, err
		}
		workerID = rep.WorkerID
	} else if before, err := s.store.GetComplaint(ctx, complaintID); err == nil && before.AssignedTo != nil {
		workerID = *before.AssignedTo
	}

	updated, err := s.store.RejectResolution(ctx, complaintID, reportID, adminID, note)
	if err != nil {
		return nil, err
	}

	if err := s.recordAudit(ctx, complaintID, adminID, models.ActionRejectResolution, models.VerdictPayload{
		ReportID: reportID,
		Note:     note,
	}); err != nil {
		return nil, err
	}

	if workerID != "" {
		if worker, err := s.store.GetWorker(ctx, workerID); err != nil {
			log.Warnf("Could not load worker %s for rejection mail: %v", workerID, err)
		} else if worker.Email != "" {
			s.notifier.Enqueue(models.NotificationEvent{
				Type:      models.EventComplaintRejected,
				Complaint: *updated,
				Recipient: worker.Email,
				Note:      note,
			})
		}
	}

	return updated, nil
}
