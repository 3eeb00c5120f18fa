package database

import (
	"database/sql"
	"fmt"
	"log"
)

const Schema = `
CREATE TABLE IF NOT EXISTS complaints (
    id CHAR(36) NOT NULL,
    token VARCHAR(16) NOT NULL,
    category ENUM('roads', 'water', 'power', 'urban', 'welfare', 'other') NOT NULL,
    subtype VARCHAR(128) NOT NULL DEFAULT '',
    description TEXT NOT NULL,
    urgency ENUM('high', 'medium', 'low') NOT NULL DEFAULT 'medium',
    location_text VARCHAR(512) NOT NULL DEFAULT '',
    location_geo TEXT,
    photo_keys TEXT,
    reporter_name VARCHAR(128) NOT NULL DEFAULT '',
    reporter_email VARCHAR(256) NOT NULL DEFAULT '',
    reporter_phone VARCHAR(32) NOT NULL DEFAULT '',
    status ENUM('submitted', 'assigned', 'in_progress', 'admin_verification_pending', 'resolved', 'queued_for_portal') NOT NULL DEFAULT 'submitted',
    verification_status ENUM('none', 'pending', 'verified', 'rejected') NOT NULL DEFAULT 'none',
    assigned_to CHAR(36),
    assigned_at TIMESTAMP NULL,
    resolved_at TIMESTAMP NULL,
    resolved_by CHAR(36),
    resolution_notes TEXT,
    group_name VARCHAR(128) NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    UNIQUE KEY uq_token (token),
    INDEX idx_status (status),
    INDEX idx_category (category),
    INDEX idx_assigned_to (assigned_to),
    INDEX idx_created_at (created_at)
);

-- Append-only assignment history; the complaint's assigned_to pointer always
-- reflects the newest row for that complaint.
CREATE TABLE IF NOT EXISTS complaint_assignments (
    id BIGINT AUTO_INCREMENT,
    complaint_id CHAR(36) NOT NULL,
    assigned_to CHAR(36) NOT NULL,
    assigned_by CHAR(36) NOT NULL,
    note TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    INDEX idx_complaint_id (complaint_id)
);

CREATE TABLE IF NOT EXISTS worker_reports (
    id CHAR(36) NOT NULL,
    complaint_id CHAR(36) NOT NULL,
    worker_id CHAR(36) NOT NULL,
    comments TEXT,
    photo_keys TEXT,
    status ENUM('submitted', 'reviewed', 'rejected') NOT NULL DEFAULT 'submitted',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    INDEX idx_report_complaint_id (complaint_id),
    INDEX idx_report_status (status)
);

-- Append-only. Rows are never mutated or deleted by this service; audit rows
-- outlive bulk-deleted complaints.
CREATE TABLE IF NOT EXISTS audit_logs (
    seq BIGINT AUTO_INCREMENT,
    complaint_id CHAR(36),
    actor VARCHAR(64) NOT NULL,
    action VARCHAR(64) NOT NULL,
    payload TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (seq),
    INDEX idx_audit_complaint_id (complaint_id)
);

-- Worker roster read model, owned by the identity service. This service
-- only reads it.
CREATE TABLE IF NOT EXISTS workers (
    id CHAR(36) NOT NULL,
    name VARCHAR(128) NOT NULL,
    email VARCHAR(256) NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    PRIMARY KEY (id)
);
`

// InitializeSchema creates the necessary database tables
func InitializeSchema(db *sql.DB) error {
	log.Println("Initializing database schema...")

	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Println("Database schema initialized successfully")
	return nil
}
