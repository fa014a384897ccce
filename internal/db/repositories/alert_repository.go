// alert_repository.go implements AlertRepository for derived workflow notifications.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// AlertRepository handles database operations for alerts
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts alert and fills in the server-assigned id and timestamp.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (category, severity, title, message, audit_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		alert.Category,
		alert.Severity,
		alert.Title,
		alert.Message,
		alert.AuditID,
	).Scan(&alert.ID, &alert.IsRead, &alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// AlertFilters contains filters for querying alerts
type AlertFilters struct {
	Category *string
	Severity *string
	Unread   bool
}

// List retrieves alerts matching the filters, newest first.
func (r *AlertRepository) List(ctx context.Context, filters AlertFilters) ([]*models.Alert, error) {
	query := `
		SELECT id, category, severity, title, message, audit_id, is_read, created_at
		FROM alerts
		WHERE 1=1
	`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.Category != nil {
		query += fmt.Sprintf(` AND category = $%d`, paramIndex)
		args = append(args, *filters.Category)
		paramIndex++
	}
	if filters.Severity != nil {
		query += fmt.Sprintf(` AND severity = $%d`, paramIndex)
		args = append(args, *filters.Severity)
		paramIndex++
	}
	if filters.Unread {
		query += ` AND is_read = FALSE`
	}

	query += ` ORDER BY created_at DESC`

	alerts := []*models.Alert{}
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return alerts, nil
}

// MarkRead flags the alert as read. Returns (nil, nil) when absent.
func (r *AlertRepository) MarkRead(ctx context.Context, id string) (*models.Alert, error) {
	query := `
		UPDATE alerts
		SET is_read = TRUE
		WHERE id = $1
		RETURNING id, category, severity, title, message, audit_id, is_read, created_at
	`

	alert := &models.Alert{}
	if err := r.db.GetContext(ctx, alert, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark alert read: %w", err)
	}

	return alert, nil
}

// UnreadCount returns the number of unread alerts.
func (r *AlertRepository) UnreadCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM alerts WHERE is_read = FALSE`); err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return count, nil
}
