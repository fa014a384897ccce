// audit_repository.go implements AuditRepository, providing database queries for the
// audit lifecycle. Counter updates are expressed as guarded single-statement UPDATEs so
// concurrent approvals on the same audit serialize inside PostgreSQL instead of racing
// through read-modify-write in Go.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// AuditRepository handles database operations for audits
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters contains filters for querying audits
type AuditFilters struct {
	OrganizationID *string
	Status         *string
	From           *time.Time
	To             *time.Time
}

const auditColumns = `
	id, organization_id, check_id, auditor, audit_type, scope, status,
	initiated_at, expected_completion, completed_at, findings,
	compliance_score, recommendations, approvals_received, approvals_required
`

// CreateTx inserts audit inside the supplied transaction and fills in the
// server-assigned monotonic id and initiation timestamp.
func (r *AuditRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, audit *models.Audit) error {
	query := `
		INSERT INTO audits (organization_id, check_id, auditor, audit_type, scope, status, expected_completion, approvals_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, initiated_at
	`

	err := tx.QueryRowContext(ctx, query,
		audit.OrganizationID,
		audit.CheckID,
		audit.Auditor,
		audit.AuditType,
		audit.Scope,
		audit.Status,
		audit.ExpectedCompletion,
		audit.ApprovalsRequired,
	).Scan(&audit.ID, &audit.InitiatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit: %w", err)
	}

	return nil
}

// GetByID retrieves an audit by ID. Returns (nil, nil) when absent.
func (r *AuditRepository) GetByID(ctx context.Context, id int64) (*models.Audit, error) {
	query := `SELECT ` + auditColumns + ` FROM audits WHERE id = $1`

	audit := &models.Audit{}
	if err := r.db.GetContext(ctx, audit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}

	return audit, nil
}

// List retrieves audits matching the filters, newest-initiated first.
func (r *AuditRepository) List(ctx context.Context, filters AuditFilters) ([]*models.Audit, error) {
	query := `SELECT ` + auditColumns + ` FROM audits WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.OrganizationID != nil {
		query += fmt.Sprintf(` AND organization_id = $%d`, paramIndex)
		args = append(args, *filters.OrganizationID)
		paramIndex++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, paramIndex)
		args = append(args, *filters.Status)
		paramIndex++
	}
	if filters.From != nil {
		query += fmt.Sprintf(` AND initiated_at >= $%d`, paramIndex)
		args = append(args, *filters.From)
		paramIndex++
	}
	if filters.To != nil {
		query += fmt.Sprintf(` AND initiated_at <= $%d`, paramIndex)
		args = append(args, *filters.To)
		paramIndex++
	}

	query += ` ORDER BY initiated_at DESC`

	audits := []*models.Audit{}
	if err := r.db.SelectContext(ctx, &audits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}

	return audits, nil
}

// RecordApprovalTx registers approverID's sign-off inside the supplied transaction.
// The approvals row insert and the guarded counter increment execute as one unit:
// the primary key on (audit_id, approver_id) rejects duplicate approvers, and the
// UPDATE predicates keep approvals_received from ever passing approvals_required or
// moving a completed audit. Returns the updated audit, ErrDuplicateApproval, or
// (nil, nil) when nothing matched: the insert hit the audits foreign key (no such
// audit) or the guarded update found no eligible row (completed/full). The caller
// distinguishes those with a fresh lookup outside the transaction.
func (r *AuditRepository) RecordApprovalTx(ctx context.Context, tx *sqlx.Tx, auditID int64, approverID string) (*models.Audit, error) {
	insert := `INSERT INTO audit_approvals (audit_id, approver_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insert, auditID, approverID); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateApproval
		}
		if isForeignKeyViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}

	update := `
		UPDATE audits
		SET approvals_received = approvals_received + 1,
		    status = CASE WHEN status = 'initiated' THEN 'in_progress' ELSE status END
		WHERE id = $1
		  AND status <> 'completed'
		  AND approvals_received < approvals_required
		RETURNING ` + auditColumns

	audit := &models.Audit{}
	err := tx.QueryRowxContext(ctx, update, auditID).StructScan(audit)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to increment approvals: %w", err)
	}

	return audit, nil
}

// CompleteTx marks the audit completed inside the supplied transaction, storing
// findings, score, and recommendations. The predicates require the quorum to be met
// and reject audits that are already completed; (nil, nil) means no row matched.
func (r *AuditRepository) CompleteTx(ctx context.Context, tx *sqlx.Tx, auditID int64, findings []string, score float64, recommendations []string) (*models.Audit, error) {
	query := `
		UPDATE audits
		SET status = 'completed',
		    completed_at = NOW(),
		    findings = $2,
		    compliance_score = $3,
		    recommendations = $4
		WHERE id = $1
		  AND status <> 'completed'
		  AND approvals_received >= approvals_required
		RETURNING ` + auditColumns

	audit := &models.Audit{}
	err := tx.QueryRowxContext(ctx, query, auditID, pq.Array(findings), score, pq.Array(recommendations)).StructScan(audit)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to complete audit: %w", err)
	}

	return audit, nil
}

// Approvers returns the approver identities recorded for an audit, oldest first.
func (r *AuditRepository) Approvers(ctx context.Context, auditID int64) ([]*models.AuditApproval, error) {
	query := `
		SELECT audit_id, approver_id, created_at
		FROM audit_approvals
		WHERE audit_id = $1
		ORDER BY created_at ASC
	`

	approvals := []*models.AuditApproval{}
	if err := r.db.SelectContext(ctx, &approvals, query, auditID); err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}

	return approvals, nil
}
