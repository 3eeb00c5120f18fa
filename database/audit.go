package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"complaints-service/models"
)

// AuditWriter appends immutable records of every state-changing action.
// Losing an audit record is a correctness failure of the triggering
// operation, so Record propagates errors instead of swallowing them.
type AuditWriter struct {
	db *sql.DB
}

// NewAuditWriter creates a new audit writer instance
func NewAuditWriter(db *sql.DB) *AuditWriter {
	return &AuditWriter{db: db}
}

// Record appends one audit entry. complaintID may be empty for actions not
// tied to a single complaint. The payload is the typed per-action struct
// from the models package, serialized to JSON.
func (w *AuditWriter) Record(ctx context.Context, complaintID, actor, action string, payload any) error {
	var payloadJSON any
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload for %s: %w", action, err)
		}
		payloadJSON = string(b)
	}

	var cid any
	if complaintID != "" {
		cid = complaintID
	}

	if _, err := w.db.ExecContext(ctx,
		"INSERT INTO audit_logs (complaint_id, actor, action, payload) VALUES (?, ?, ?, ?)",
		cid, actor, action, payloadJSON); err != nil {
		return fmt.Errorf("failed to write audit log entry %s: %w", action, err)
	}
	return nil
}

// ListByComplaint returns all audit entries for a complaint in append order.
func (w *AuditWriter) ListByComplaint(ctx context.Context, complaintID string) ([]models.AuditLogEntry, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT seq, complaint_id, actor, action, payload, created_at
		FROM audit_logs WHERE complaint_id = ? ORDER BY seq`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	res := []models.AuditLogEntry{}
	for rows.Next() {
		var (
			e       models.AuditLogEntry
			cid     sql.NullString
			payload sql.NullString
		)
		if err := rows.Scan(&e.Seq, &cid, &e.Actor, &e.Action, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if cid.Valid {
			e.ComplaintID = &cid.String
		}
		e.Payload = payload.String
		res = append(res, e)
	}
	return res, rows.Err()
}
