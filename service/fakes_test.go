package service

import (
	"context"
	"fmt"
	"time"

	"complaints-service/apperrors"
	"complaints-service/models"
)

// In-memory store fake mirroring the semantics of database.ComplaintService.
type fakeStore struct {
	complaints  map[string]*models.Complaint
	reports     map[string]*models.WorkerReport
	assignments []models.Assignment
	workers     map[string]*models.Worker
	seq         int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		complaints: map[string]*models.Complaint{},
		reports:    map[string]*models.WorkerReport{},
		workers:    map[string]*models.Worker{},
	}
}

func (f *fakeStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	f.seq++
	c.ID = fmt.Sprintf("c-%d", f.seq)
	c.Token = fmt.Sprintf("PMC-%06d", f.seq)
	if c.Urgency == "" {
		c.Urgency = models.UrgencyMedium
	}
	c.Status = models.StatusSubmitted
	c.VerificationStatus = models.VerificationNone
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	stored := *c
	f.complaints[c.ID] = &stored
	return nil
}

func (f *fakeStore) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	c, ok := f.complaints[id]
	if !ok {
		return nil, apperrors.NotFoundf("complaint %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) UpdateComplaintFields(ctx context.Context, id string, changes map[string]string, expected *time.Time) (*models.Complaint, error) {
	c, ok := f.complaints[id]
	if !ok {
		return nil, apperrors.NotFoundf("complaint %s not found", id)
	}
	if expected != nil && !expected.Equal(c.UpdatedAt) {
		return nil, apperrors.Conflictf("complaint %s was modified concurrently", id)
	}
	for field, value := range changes {
		switch field {
		case "urgency":
			c.Urgency = value
		case "status":
			c.Status = value
		case "description":
			c.Description = value
		case "category":
			c.Category = value
		case "subtype":
			c.Subtype = value
		case "location_text":
			c.LocationText = value
		case "group_name":
			c.GroupName = value
		}
	}
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (f *fakeStore) AssignComplaint(ctx context.Context, complaintID, workerID, assignedBy, note string) (*models.Complaint, *models.Assignment, error) {
	c, ok := f.complaints[complaintID]
	if !ok {
		return nil, nil, apperrors.NotFoundf("complaint %s not found", complaintID)
	}
	now := time.Now()
	c.AssignedTo = &workerID
	c.AssignedAt = &now
	c.Status = models.StatusAssigned
	c.UpdatedAt = now

	a := models.Assignment{
		ID:          int64(len(f.assignments) + 1),
		ComplaintID: complaintID,
		AssignedTo:  workerID,
		AssignedBy:  assignedBy,
		Note:        note,
		CreatedAt:   now,
	}
	f.assignments = append(f.assignments, a)
	cp := *c
	return &cp, &a, nil
}

func (f *fakeStore) CreateWorkerReport(ctx context.Context, rep *models.WorkerReport) (*models.Complaint, error) {
	c, ok := f.complaints[rep.ComplaintID]
	if !ok || c.AssignedTo == nil || *c.AssignedTo != rep.WorkerID {
		return nil, apperrors.Forbiddenf("complaint %s is not assigned to worker %s", rep.ComplaintID, rep.WorkerID)
	}
	f.seq++
	rep.ID = fmt.Sprintf("r-%d", f.seq)
	rep.Status = models.ReportSubmitted
	now := time.Now()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	stored := *rep
	f.reports[rep.ID] = &stored

	c.Status = models.StatusVerificationPending
	c.VerificationStatus = models.VerificationPending
	c.UpdatedAt = now
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetWorkerReport(ctx context.Context, id string) (*models.WorkerReport, error) {
	rep, ok := f.reports[id]
	if !ok {
		return nil, apperrors.NotFoundf("report %s not found", id)
	}
	cp := *rep
	return &cp, nil
}

func (f *fakeStore) VerifyResolution(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error) {
	return f.applyVerdict(complaintID, reportID, adminID, note, true)
}

func (f *fakeStore) RejectResolution(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error) {
	return f.applyVerdict(complaintID, reportID, adminID, note, false)
}

func (f *fakeStore) applyVerdict(complaintID, reportID, adminID, note string, verified bool) (*models.Complaint, error) {
	c, ok := f.complaints[complaintID]
	if !ok {
		return nil, apperrors.NotFoundf("complaint %s not found", complaintID)
	}
	if reportID != "" {
		rep, ok := f.reports[reportID]
		if !ok || rep.ComplaintID != complaintID {
			return nil, apperrors.NotFoundf("report %s not found for complaint %s", reportID, complaintID)
		}
		if verified {
			rep.Status = models.ReportReviewed
		} else {
			rep.Status = models.ReportRejected
		}
		rep.UpdatedAt = time.Now()
	}

	now := time.Now()
	if verified {
		c.Status = models.StatusResolved
		c.VerificationStatus = models.VerificationVerified
		c.ResolvedAt = &now
		c.ResolvedBy = &adminID
	} else {
		c.Status = models.StatusInProgress
		c.VerificationStatus = models.VerificationRejected
	}
	c.ResolutionNotes = note
	c.UpdatedAt = now
	cp := *c
	return &cp, nil
}

func (f *fakeStore) MarkQueuedForPortal(ctx context.Context, complaintID string) (*models.Complaint, error) {
	c, ok := f.complaints[complaintID]
	if !ok {
		return nil, apperrors.NotFoundf("complaint %s not found", complaintID)
	}
	if c.Status != models.StatusResolved {
		return nil, apperrors.Validationf("complaint %s is not resolved", complaintID)
	}
	c.Status = models.StatusQueuedForPortal
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (f *fakeStore) DeleteComplaint(ctx context.Context, complaintID string) error {
	if _, ok := f.complaints[complaintID]; !ok {
		return apperrors.NotFoundf("complaint %s not found", complaintID)
	}
	delete(f.complaints, complaintID)
	for id, rep := range f.reports {
		if rep.ComplaintID == complaintID {
			delete(f.reports, id)
		}
	}
	kept := f.assignments[:0]
	for _, a := range f.assignments {
		if a.ComplaintID != complaintID {
			kept = append(kept, a)
		}
	}
	f.assignments = kept
	return nil
}

func (f *fakeStore) GetWorker(ctx context.Context, id string) (*models.Worker, error) {
	w, ok := f.workers[id]
	if !ok {
		return nil, apperrors.NotFoundf("worker %s not found", id)
	}
	cp := *w
	return &cp, nil
}

// Recording audit writer, optionally failing.
type auditEntry struct {
	ComplaintID string
	Actor       string
	Action      string
	Payload     any
}

type recordingAudit struct {
	entries []auditEntry
	fail    bool
}

func (a *recordingAudit) Record(ctx context.Context, complaintID, actor, action string, payload any) error {
	if a.fail {
		return fmt.Errorf("audit store unavailable")
	}
	a.entries = append(a.entries, auditEntry{ComplaintID: complaintID, Actor: actor, Action: action, Payload: payload})
	return nil
}

func (a *recordingAudit) actions() []string {
	res := make([]string, len(a.entries))
	for i, e := range a.entries {
		res[i] = e.Action
	}
	return res
}

// Recording notifier.
type recordingNotifier struct {
	events []models.NotificationEvent
}

func (n *recordingNotifier) Enqueue(event models.NotificationEvent) {
	n.events = append(n.events, event)
}

// Static photo resolver.
type fakePhotoResolver struct{}

func (fakePhotoResolver) ResolveAll(ctx context.Context, keys []string) []string {
	urls := make([]string, len(keys))
	for i, key := range keys {
		urls[i] = "https://blobs.test/" + key
	}
	return urls
}
