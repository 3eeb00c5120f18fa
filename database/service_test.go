package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"complaints-service/apperrors"
	"complaints-service/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func complaintColumnsList() []string {
	return []string{
		"id", "token", "category", "subtype", "description", "urgency",
		"location_text", "location_geo", "photo_keys",
		"reporter_name", "reporter_email", "reporter_phone",
		"status", "verification_status", "assigned_to", "assigned_at",
		"resolved_at", "resolved_by", "resolution_notes", "group_name",
		"created_at", "updated_at",
	}
}

func complaintRow(id, status string, assignedTo any, assignedAt any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(complaintColumnsList()).AddRow(
		id, "PMC-TEST01", "roads", "pothole", "Large pothole on MG Road", "medium",
		"MG Road", nil, nil,
		"A Citizen", "a@example.com", "",
		status, "none", assignedTo, assignedAt,
		nil, nil, nil, "",
		now, now,
	)
}

func TestGetComplaintNotFound(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT (.+) FROM complaints WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		svc := NewComplaintService(db)
		_, err := svc.GetComplaint(context.Background(), "missing")

		var nf *apperrors.NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestAssignComplaint(t *testing.T) {
	it(func() {
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE complaints SET assigned_to = (.+), assigned_at = CURRENT_TIMESTAMP, status = (.+)").
			WithArgs("worker-1", models.StatusAssigned, "c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO complaint_assignments").
			WithArgs("c-1", "worker-1", "admin-1", "check it").
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT (.+) FROM complaints WHERE id = ?").
			WithArgs("c-1").
			WillReturnRows(complaintRow("c-1", models.StatusAssigned, "worker-1", now))

		svc := NewComplaintService(db)
		c, assignment, err := svc.AssignComplaint(context.Background(), "c-1", "worker-1", "admin-1", "check it")
		if err != nil {
			t.Fatalf("AssignComplaint: %v", err)
		}
		if assignment.ID != 7 {
			t.Errorf("expected assignment id 7, got %d", assignment.ID)
		}

		// assigned_at must be set exactly when assigned_to is set.
		if c.AssignedTo == nil || *c.AssignedTo != "worker-1" {
			t.Errorf("expected assigned_to worker-1, got %v", c.AssignedTo)
		}
		if c.AssignedAt == nil {
			t.Error("expected assigned_at to be set alongside assigned_to")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestAssignComplaintNotFound(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE complaints SET assigned_to = (.+)").
			WithArgs("worker-1", models.StatusAssigned, "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		svc := NewComplaintService(db)
		_, _, err := svc.AssignComplaint(context.Background(), "missing", "worker-1", "admin-1", "")

		var nf *apperrors.NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestCreateWorkerReportNotAssignee(t *testing.T) {
	it(func() {
		// The assignee condition is re-checked inside the transaction: zero
		// affected rows means the worker no longer owns the complaint.
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE complaints SET status = (.+), verification_status = (.+)").
			WithArgs(models.StatusVerificationPending, models.VerificationPending, "c-1", "worker-2").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		svc := NewComplaintService(db)
		_, err := svc.CreateWorkerReport(context.Background(), &models.WorkerReport{
			ComplaintID: "c-1",
			WorkerID:    "worker-2",
			Comments:    "fixed",
		})

		var fe *apperrors.ForbiddenError
		if !errors.As(err, &fe) {
			t.Errorf("expected ForbiddenError, got %v", err)
		}
	})
}

func TestUpdateComplaintFieldsConflict(t *testing.T) {
	it(func() {
		stale := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		mock.ExpectExec("UPDATE complaints SET urgency = (.+), updated_at = CURRENT_TIMESTAMP WHERE id = (.+) AND updated_at = (.+)").
			WithArgs("high", "c-1", stale.Format(time.DateTime)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// The row still exists, so the zero-row update means a lost
		// conditional write, not a missing complaint.
		mock.ExpectQuery("SELECT (.+) FROM complaints WHERE id = ?").
			WithArgs("c-1").
			WillReturnRows(complaintRow("c-1", models.StatusSubmitted, nil, nil))

		svc := NewComplaintService(db)
		_, err := svc.UpdateComplaintFields(context.Background(), "c-1",
			map[string]string{"urgency": "high"}, &stale)

		var ce *apperrors.ConflictError
		if !errors.As(err, &ce) {
			t.Errorf("expected ConflictError, got %v", err)
		}
	})
}

func TestUpdateComplaintFieldsNotFound(t *testing.T) {
	it(func() {
		mock.ExpectExec("UPDATE complaints SET group_name = (.+), updated_at = CURRENT_TIMESTAMP WHERE id = (.+)").
			WithArgs("ward-12", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM complaints WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		svc := NewComplaintService(db)
		_, err := svc.UpdateComplaintFields(context.Background(), "missing",
			map[string]string{"group_name": "ward-12"}, nil)

		var nf *apperrors.NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestDeleteComplaintCascade(t *testing.T) {
	it(func() {
		// Reports and assignment history go in the same transaction as the
		// complaint row; audit entries are retained.
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM worker_reports WHERE complaint_id = ?").
			WithArgs("c-1").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("DELETE FROM complaint_assignments WHERE complaint_id = ?").
			WithArgs("c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM complaints WHERE id = ?").
			WithArgs("c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		svc := NewComplaintService(db)
		if err := svc.DeleteComplaint(context.Background(), "c-1"); err != nil {
			t.Fatalf("DeleteComplaint: %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestDeleteComplaintNotFound(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM worker_reports WHERE complaint_id = ?").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM complaint_assignments WHERE complaint_id = ?").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM complaints WHERE id = ?").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		svc := NewComplaintService(db)
		err := svc.DeleteComplaint(context.Background(), "missing")

		var nf *apperrors.NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestVerifyResolutionReportNotFound(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE complaints SET status = (.+), verification_status = (.+), resolved_at = CURRENT_TIMESTAMP").
			WithArgs(models.StatusResolved, models.VerificationVerified, "admin-1", "done", "c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE worker_reports SET status = (.+)").
			WithArgs(models.ReportReviewed, "missing-report", "c-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		svc := NewComplaintService(db)
		_, err := svc.VerifyResolution(context.Background(), "c-1", "missing-report", "admin-1", "done")

		var nf *apperrors.NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestMarkQueuedForPortalRequiresResolved(t *testing.T) {
	it(func() {
		mock.ExpectExec("UPDATE complaints SET status = (.+), updated_at = CURRENT_TIMESTAMP WHERE id = (.+) AND status = (.+)").
			WithArgs(models.StatusQueuedForPortal, "c-1", models.StatusResolved).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM complaints WHERE id = ?").
			WithArgs("c-1").
			WillReturnRows(complaintRow("c-1", models.StatusSubmitted, nil, nil))

		svc := NewComplaintService(db)
		_, err := svc.MarkQueuedForPortal(context.Background(), "c-1")

		var ve *apperrors.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})
}
