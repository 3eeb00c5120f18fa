package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"complaints-service/apperrors"
	"complaints-service/models"

	"github.com/apex/log"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
)

// ComplaintService handles all complaint-related database operations.
type ComplaintService struct {
	db *sql.DB
}

// NewComplaintService creates a new complaint service instance
func NewComplaintService(db *sql.DB) *ComplaintService {
	return &ComplaintService{db: db}
}

const complaintColumns = `id, token, category, subtype, description, urgency,
	location_text, location_geo, photo_keys,
	reporter_name, reporter_email, reporter_phone,
	status, verification_status, assigned_to, assigned_at,
	resolved_at, resolved_by, resolution_notes, group_name,
	created_at, updated_at`

// CreateComplaint inserts a new complaint, assigning its id and a unique
// tracking token. The caller is expected to have validated the input.
func (s *ComplaintService) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	c.ID = uuid.New().String()
	if c.Urgency == "" {
		c.Urgency = models.UrgencyMedium
	}
	c.Status = models.StatusSubmitted
	c.VerificationStatus = models.VerificationNone

	geo, err := marshalGeometry(c.Location)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	photos, err := marshalKeys(c.PhotoKeys)
	if err != nil {
		return fmt.Errorf("failed to encode photo keys: %w", err)
	}

	// The token carries a unique key; retry on the rare collision.
	for attempt := 0; attempt < 5; attempt++ {
		c.Token = generateTrackingToken()
		_, err = s.db.ExecContext(ctx, `INSERT INTO complaints
			(id, token, category, subtype, description, urgency,
			 location_text, location_geo, photo_keys,
			 reporter_name, reporter_email, reporter_phone, status, verification_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Token, c.Category, c.Subtype, c.Description, c.Urgency,
			c.LocationText, geo, photos,
			c.ReporterName, c.ReporterEmail, c.ReporterPhone, c.Status, c.VerificationStatus)
		if err == nil {
			break
		}
		if !isDuplicateKey(err) {
			return fmt.Errorf("failed to insert complaint: %w", err)
		}
		log.Warnf("Tracking token collision on %s, regenerating", c.Token)
	}
	if err != nil {
		return fmt.Errorf("failed to insert complaint after token retries: %w", err)
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetComplaint fetches a complaint by id.
func (s *ComplaintService) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id)
	c, err := scanComplaint(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("complaint %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query complaint: %w", err)
	}
	return c, nil
}

// GetComplaintByToken fetches a complaint by its public tracking token.
func (s *ComplaintService) GetComplaintByToken(ctx context.Context, token string) (*models.Complaint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE token = ?`, token)
	c, err := scanComplaint(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("no complaint with token %s", token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query complaint by token: %w", err)
	}
	return c, nil
}

// ListComplaints returns complaints matching the filter, newest first.
func (s *ComplaintService) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	where := []string{}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.GroupName != "" {
		where = append(where, "group_name = ?")
		args = append(args, f.GroupName)
	}
	if f.AssignedTo != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, f.AssignedTo)
	}

	sqlStr := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	res := []models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint row: %w", err)
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

// UpdateComplaintFields applies an allow-listed field patch. When expected
// is non-nil the update is conditional on the stored updated_at; a stale
// value fails with a ConflictError instead of overwriting a concurrent write.
func (s *ComplaintService) UpdateComplaintFields(ctx context.Context, id string, changes map[string]string, expected *time.Time) (*models.Complaint, error) {
	if len(changes) == 0 {
		return s.GetComplaint(ctx, id)
	}

	// Deterministic column order keeps queries stable for logs and tests.
	cols := make([]string, 0, len(changes))
	for col := range changes {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols)+1)
	args := []any{}
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, changes[col])
	}
	// Touch updated_at on every write. The DSN sets clientFoundRows, so
	// zero rows affected means the WHERE clause matched nothing, never
	// "values already equal".
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf("UPDATE complaints SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)
	if expected != nil {
		query += " AND updated_at = ?"
		args = append(args, expected.UTC().Format(time.DateTime))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update complaint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the complaint is gone or the conditional write lost.
		if _, err := s.GetComplaint(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperrors.Conflictf("complaint %s was modified concurrently", id)
	}

	return s.GetComplaint(ctx, id)
}

// AssignComplaint points the complaint at a worker and appends the
// assignment history row in the same transaction. Re-assignment overwrites
// the pointer; history is additive only.
func (s *ComplaintService) AssignComplaint(ctx context.Context, complaintID, workerID, assignedBy, note string) (*models.Complaint, *models.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE complaints
		SET assigned_to = ?, assigned_at = CURRENT_TIMESTAMP, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		workerID, models.StatusAssigned, complaintID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update complaint assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil, apperrors.NotFoundf("complaint %s not found", complaintID)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO complaint_assignments
		(complaint_id, assigned_to, assigned_by, note) VALUES (?, ?, ?, ?)`,
		complaintID, workerID, assignedBy, note)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert assignment history: %w", err)
	}
	assignmentID, _ := res.LastInsertId()

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	c, err := s.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}
	assignment := &models.Assignment{
		ID:          assignmentID,
		ComplaintID: complaintID,
		AssignedTo:  workerID,
		AssignedBy:  assignedBy,
		Note:        note,
		CreatedAt:   time.Now(),
	}
	return c, assignment, nil
}

// ListAssignments returns the assignment history for a complaint, oldest first.
func (s *ComplaintService) ListAssignments(ctx context.Context, complaintID string) ([]models.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, complaint_id, assigned_to, assigned_by, note, created_at
		FROM complaint_assignments WHERE complaint_id = ? ORDER BY id`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	res := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		var note sql.NullString
		if err := rows.Scan(&a.ID, &a.ComplaintID, &a.AssignedTo, &a.AssignedBy, &note, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		a.Note = note.String
		res = append(res, a)
	}
	return res, rows.Err()
}

// CreateWorkerReport inserts the report and moves the complaint to
// admin verification in one transaction. The assignee condition on the
// complaint update re-checks ownership at write time so a reassignment
// racing the report loses cleanly.
func (s *ComplaintService) CreateWorkerReport(ctx context.Context, rep *models.WorkerReport) (*models.Complaint, error) {
	rep.ID = uuid.New().String()
	rep.Status = models.ReportSubmitted

	photos, err := marshalKeys(rep.PhotoKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report photo keys: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE complaints
		SET status = ?, verification_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND assigned_to = ?`,
		models.StatusVerificationPending, models.VerificationPending, rep.ComplaintID, rep.WorkerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update complaint for report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperrors.Forbiddenf("complaint %s is not assigned to worker %s", rep.ComplaintID, rep.WorkerID)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO worker_reports
		(id, complaint_id, worker_id, comments, photo_keys, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.ComplaintID, rep.WorkerID, rep.Comments, photos, rep.Status); err != nil {
		return nil, fmt.Errorf("failed to insert worker report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}

	now := time.Now()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	return s.GetComplaint(ctx, rep.ComplaintID)
}

// GetWorkerReport fetches a report by id.
func (s *ComplaintService) GetWorkerReport(ctx context.Context, id string) (*models.WorkerReport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, complaint_id, worker_id, comments, photo_keys, status, created_at, updated_at
		FROM worker_reports WHERE id = ?`, id)
	rep, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("report %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	return rep, nil
}

// ListWorkerReports returns all reports for a complaint, oldest first.
func (s *ComplaintService) ListWorkerReports(ctx context.Context, complaintID string) ([]models.WorkerReport, error) {
	return s.listReports(ctx, `SELECT id, complaint_id, worker_id, comments, photo_keys, status, created_at, updated_at
		FROM worker_reports WHERE complaint_id = ? ORDER BY created_at`, complaintID)
}

// ListPendingReports returns all reports awaiting admin review, oldest first.
func (s *ComplaintService) ListPendingReports(ctx context.Context) ([]models.WorkerReport, error) {
	return s.listReports(ctx, `SELECT id, complaint_id, worker_id, comments, photo_keys, status, created_at, updated_at
		FROM worker_reports WHERE status = ? ORDER BY created_at`, models.ReportSubmitted)
}

func (s *ComplaintService) listReports(ctx context.Context, query string, args ...any) ([]models.WorkerReport, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	res := []models.WorkerReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		res = append(res, *rep)
	}
	return res, rows.Err()
}

// VerifyResolution resolves the complaint and, when reportID is given,
// marks that report reviewed, in one transaction. Idempotent in effect:
// verifying an already resolved complaint leaves it resolved.
func (s *ComplaintService) VerifyResolution(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error) {
	return s.applyVerdict(ctx, complaintID, reportID, models.ReportReviewed, `UPDATE complaints
		SET status = ?, verification_status = ?, resolved_at = CURRENT_TIMESTAMP,
		    resolved_by = ?, resolution_notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		models.StatusResolved, models.VerificationVerified, adminID, note, complaintID)
}

// RejectResolution sends the complaint back to in_progress and, when
// reportID is given, marks that report rejected, in one transaction.
func (s *ComplaintService) RejectResolution(ctx context.Context, complaintID, reportID, adminID, note string) (*models.Complaint, error) {
	return s.applyVerdict(ctx, complaintID, reportID, models.ReportRejected, `UPDATE complaints
		SET status = ?, verification_status = ?, resolution_notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		models.StatusInProgress, models.VerificationRejected, note, complaintID)
}

func (s *ComplaintService) applyVerdict(ctx context.Context, complaintID, reportID, reportStatus, query string, args ...any) (*models.Complaint, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update complaint verdict: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperrors.NotFoundf("complaint %s not found", complaintID)
	}

	if reportID != "" {
		result, err := tx.ExecContext(ctx, `UPDATE worker_reports
			SET status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND complaint_id = ?`,
			reportStatus, reportID, complaintID)
		if err != nil {
			return nil, fmt.Errorf("failed to update report status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return nil, apperrors.NotFoundf("report %s not found for complaint %s", reportID, complaintID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit verdict: %w", err)
	}
	return s.GetComplaint(ctx, complaintID)
}

// MarkQueuedForPortal flips a resolved complaint to queued_for_portal.
func (s *ComplaintService) MarkQueuedForPortal(ctx context.Context, complaintID string) (*models.Complaint, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE complaints
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		models.StatusQueuedForPortal, complaintID, models.StatusResolved)
	if err != nil {
		return nil, fmt.Errorf("failed to queue complaint for portal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetComplaint(ctx, complaintID); err != nil {
			return nil, err
		}
		return nil, apperrors.Validationf("complaint %s is not resolved", complaintID)
	}
	return s.GetComplaint(ctx, complaintID)
}

// DeleteComplaint removes the complaint together with its assignment and
// report rows in one transaction. Audit rows are append-only and outlive
// the complaint.
func (s *ComplaintService) DeleteComplaint(ctx context.Context, complaintID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM worker_reports WHERE complaint_id = ?", complaintID); err != nil {
		return fmt.Errorf("failed to delete worker reports: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM complaint_assignments WHERE complaint_id = ?", complaintID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM complaints WHERE id = ?", complaintID)
	if err != nil {
		return fmt.Errorf("failed to delete complaint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFoundf("complaint %s not found", complaintID)
	}

	return tx.Commit()
}

// GetWorker reads a worker from the roster. The roster is owned by the
// identity service; this service never writes it.
func (s *ComplaintService) GetWorker(ctx context.Context, id string) (*models.Worker, error) {
	var w models.Worker
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, active FROM workers WHERE id = ?", id).
		Scan(&w.ID, &w.Name, &w.Email, &w.Active)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("worker %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query worker: %w", err)
	}
	return &w, nil
}

// Scan helpers.

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var (
		c               models.Complaint
		locationGeo     sql.NullString
		photoKeys       sql.NullString
		assignedTo      sql.NullString
		assignedAt      sql.NullTime
		resolvedAt      sql.NullTime
		resolvedBy      sql.NullString
		resolutionNotes sql.NullString
	)
	err := row.Scan(&c.ID, &c.Token, &c.Category, &c.Subtype, &c.Description, &c.Urgency,
		&c.LocationText, &locationGeo, &photoKeys,
		&c.ReporterName, &c.ReporterEmail, &c.ReporterPhone,
		&c.Status, &c.VerificationStatus, &assignedTo, &assignedAt,
		&resolvedAt, &resolvedBy, &resolutionNotes, &c.GroupName,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if locationGeo.Valid && locationGeo.String != "" {
		geo := &geojson.Geometry{}
		if err := json.Unmarshal([]byte(locationGeo.String), geo); err != nil {
			return nil, fmt.Errorf("failed to decode location geometry: %w", err)
		}
		c.Location = geo
	}
	if photoKeys.Valid && photoKeys.String != "" {
		if err := json.Unmarshal([]byte(photoKeys.String), &c.PhotoKeys); err != nil {
			return nil, fmt.Errorf("failed to decode photo keys: %w", err)
		}
	}
	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.String
	}
	if assignedAt.Valid {
		t := assignedAt.Time
		c.AssignedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	if resolvedBy.Valid && resolvedBy.String != "" {
		c.ResolvedBy = &resolvedBy.String
	}
	c.ResolutionNotes = resolutionNotes.String
	return &c, nil
}

func scanReport(row rowScanner) (*models.WorkerReport, error) {
	var (
		rep       models.WorkerReport
		comments  sql.NullString
		photoKeys sql.NullString
	)
	err := row.Scan(&rep.ID, &rep.ComplaintID, &rep.WorkerID, &comments, &photoKeys,
		&rep.Status, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rep.Comments = comments.String
	if photoKeys.Valid && photoKeys.String != "" {
		if err := json.Unmarshal([]byte(photoKeys.String), &rep.PhotoKeys); err != nil {
			return nil, fmt.Errorf("failed to decode report photo keys: %w", err)
		}
	}
	return &rep, nil
}

func marshalGeometry(geo *geojson.Geometry) (any, error) {
	if geo == nil {
		return nil, nil
	}
	b, err := json.Marshal(geo)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func marshalKeys(keys []string) (any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
