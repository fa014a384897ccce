// schedule_repository.go implements ScheduleRepository for audit bookings consumed
// by the schedule runner job.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// ScheduleRepository handles database operations for scheduled audits
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `
	id, name, organization_id, check_id, audit_type, scheduled_date,
	recurrence, is_active, last_run_at, created_at
`

// Create inserts sched and fills in the server-assigned id and timestamp.
// Returns ErrDuplicate when the name is taken.
func (r *ScheduleRepository) Create(ctx context.Context, sched *models.ScheduledAudit) error {
	query := `
		INSERT INTO scheduled_audits (name, organization_id, check_id, audit_type, scheduled_date, recurrence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		sched.Name,
		sched.OrganizationID,
		sched.CheckID,
		sched.AuditType,
		sched.ScheduledDate,
		sched.Recurrence,
	).Scan(&sched.ID, &sched.IsActive, &sched.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

// GetByID retrieves a schedule by ID. Returns (nil, nil) when absent.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.ScheduledAudit, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_audits WHERE id = $1`

	sched := &models.ScheduledAudit{}
	if err := r.db.GetContext(ctx, sched, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return sched, nil
}

// List retrieves all schedules ordered by next due date.
func (r *ScheduleRepository) List(ctx context.Context) ([]*models.ScheduledAudit, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_audits ORDER BY scheduled_date ASC`

	scheds := []*models.ScheduledAudit{}
	if err := r.db.SelectContext(ctx, &scheds, query); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	return scheds, nil
}

// Due retrieves active schedules whose scheduled date is at or before now.
func (r *ScheduleRepository) Due(ctx context.Context, now time.Time) ([]*models.ScheduledAudit, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scheduled_audits
		WHERE is_active = TRUE AND scheduled_date <= $1
		ORDER BY scheduled_date ASC
	`

	scheds := []*models.ScheduledAudit{}
	if err := r.db.SelectContext(ctx, &scheds, query, now); err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}

	return scheds, nil
}

// MarkRun records a run at ranAt and advances the schedule to its next occurrence.
// One-shot schedules are deactivated instead of advanced.
func (r *ScheduleRepository) MarkRun(ctx context.Context, sched *models.ScheduledAudit, ranAt time.Time) error {
	next := sched.NextOccurrence()
	if next.IsZero() {
		query := `UPDATE scheduled_audits SET last_run_at = $2, is_active = FALSE WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, sched.ID, ranAt); err != nil {
			return fmt.Errorf("failed to retire schedule: %w", err)
		}
		return nil
	}

	query := `UPDATE scheduled_audits SET last_run_at = $2, scheduled_date = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, sched.ID, ranAt, next); err != nil {
		return fmt.Errorf("failed to advance schedule: %w", err)
	}
	return nil
}

// SetActive toggles the schedule's active flag. Returns (nil, nil) when absent.
func (r *ScheduleRepository) SetActive(ctx context.Context, id string, active bool) (*models.ScheduledAudit, error) {
	query := `
		UPDATE scheduled_audits
		SET is_active = $2
		WHERE id = $1
		RETURNING ` + scheduleColumns

	sched := &models.ScheduledAudit{}
	if err := r.db.GetContext(ctx, sched, query, id, active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	return sched, nil
}
