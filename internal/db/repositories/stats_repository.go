// stats_repository.go implements StatsRepository, the read-only aggregation queries
// behind the compliance, monthly, and dashboard projections. Band classification
// happens in SQL against caller-supplied thresholds so the projection and the
// workflow engine always agree on banding.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// StatsRepository handles aggregate reporting queries
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// OrganizationCompliance is one row of the per-organization compliance projection
type OrganizationCompliance struct {
	OrganizationID   string   `json:"organization_id" db:"organization_id"`
	OrganizationName string   `json:"organization_name" db:"organization_name"`
	CompletedAudits  int64    `json:"completed_audits" db:"completed_audits"`
	AverageScore     float64  `json:"average_score" db:"average_score"`
	CompliantCount   int64    `json:"compliant_count" db:"compliant_count"`
	WarningCount     int64    `json:"warning_count" db:"warning_count"`
	CriticalCount    int64    `json:"critical_count" db:"critical_count"`
	Band             string   `json:"band" db:"band"`
}

// ComplianceByOrganization aggregates completed audits per organization, banding
// each audit and the organization's average score against the supplied thresholds.
// Organizations with no completed audits report the "unaudited" band and a zero
// average. An empty organizationID aggregates every organization.
func (r *StatsRepository) ComplianceByOrganization(ctx context.Context, compliantMin, warningMin float64, organizationID string) ([]*OrganizationCompliance, error) {
	query := `
		SELECT
			o.id AS organization_id,
			o.name AS organization_name,
			COUNT(a.id) AS completed_audits,
			COALESCE(AVG(a.compliance_score), 0) AS average_score,
			COUNT(a.id) FILTER (WHERE a.compliance_score >= $1) AS compliant_count,
			COUNT(a.id) FILTER (WHERE a.compliance_score >= $2 AND a.compliance_score < $1) AS warning_count,
			COUNT(a.id) FILTER (WHERE a.compliance_score < $2) AS critical_count,
			CASE
				WHEN COUNT(a.id) = 0 THEN 'unaudited'
				WHEN AVG(a.compliance_score) >= $1 THEN 'compliant'
				WHEN AVG(a.compliance_score) >= $2 THEN 'warning'
				ELSE 'critical'
			END AS band
		FROM organizations o
		LEFT JOIN audits a ON a.organization_id = o.id AND a.status = 'completed'
	`
	args := []interface{}{compliantMin, warningMin}
	if organizationID != "" {
		query += ` WHERE o.id = $3`
		args = append(args, organizationID)
	}
	query += `
		GROUP BY o.id, o.name
		ORDER BY o.name ASC
	`

	rows := []*OrganizationCompliance{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to aggregate compliance stats: %w", err)
	}

	return rows, nil
}

// CategoryCompliance is completed audit aggregation keyed by audit type
type CategoryCompliance struct {
	AuditType       string   `json:"audit_type" db:"audit_type"`
	CompletedAudits int64    `json:"completed_audits" db:"completed_audits"`
	AverageScore    *float64 `json:"average_score" db:"average_score"`
}

// ComplianceByCategory aggregates completed audits per audit type, optionally
// scoped to one organization.
func (r *StatsRepository) ComplianceByCategory(ctx context.Context, organizationID string) ([]*CategoryCompliance, error) {
	query := `
		SELECT
			audit_type,
			COUNT(*) AS completed_audits,
			AVG(compliance_score) AS average_score
		FROM audits
		WHERE status = 'completed'
	`
	args := []interface{}{}
	if organizationID != "" {
		query += ` AND organization_id = $1`
		args = append(args, organizationID)
	}
	query += `
		GROUP BY audit_type
		ORDER BY audit_type ASC
	`

	rows := []*CategoryCompliance{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to aggregate category stats: %w", err)
	}

	return rows, nil
}

// MonthlyActivity is one calendar month of audit activity
type MonthlyActivity struct {
	Month        time.Time `json:"month" db:"month"`
	Initiated    int64     `json:"initiated" db:"initiated"`
	Completed    int64     `json:"completed" db:"completed"`
	AverageScore *float64  `json:"average_score" db:"average_score"`
}

// MonthlyBreakdown aggregates audit activity by initiation month over the trailing
// window, newest month first. Months with no activity are omitted.
func (r *StatsRepository) MonthlyBreakdown(ctx context.Context, months int) ([]*MonthlyActivity, error) {
	query := `
		SELECT
			date_trunc('month', initiated_at) AS month,
			COUNT(*) AS initiated,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			AVG(compliance_score) FILTER (WHERE status = 'completed') AS average_score
		FROM audits
		WHERE initiated_at >= date_trunc('month', NOW()) - ($1 * INTERVAL '1 month')
		GROUP BY date_trunc('month', initiated_at)
		ORDER BY month DESC
	`

	rows := []*MonthlyActivity{}
	if err := r.db.SelectContext(ctx, &rows, query, months); err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly stats: %w", err)
	}

	return rows, nil
}

// DashboardCounts holds the headline totals for the dashboard projection
type DashboardCounts struct {
	Organizations   int64 `json:"organizations" db:"organizations"`
	Standards       int64 `json:"standards" db:"standards"`
	Checks          int64 `json:"checks" db:"checks"`
	AuditsInitiated int64 `json:"audits_initiated" db:"audits_initiated"`
	AuditsActive    int64 `json:"audits_active" db:"audits_active"`
	AuditsCompleted int64 `json:"audits_completed" db:"audits_completed"`
	UnreadAlerts    int64 `json:"unread_alerts" db:"unread_alerts"`
	LedgerRecords   int64 `json:"ledger_records" db:"ledger_records"`
}

// Dashboard gathers the headline totals in a single round trip.
func (r *StatsRepository) Dashboard(ctx context.Context) (*DashboardCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM organizations) AS organizations,
			(SELECT COUNT(*) FROM quality_standards) AS standards,
			(SELECT COUNT(*) FROM quality_checks) AS checks,
			(SELECT COUNT(*) FROM audits WHERE status = 'initiated') AS audits_initiated,
			(SELECT COUNT(*) FROM audits WHERE status = 'in_progress') AS audits_active,
			(SELECT COUNT(*) FROM audits WHERE status = 'completed') AS audits_completed,
			(SELECT COUNT(*) FROM alerts WHERE is_read = FALSE) AS unread_alerts,
			(SELECT COUNT(*) FROM ledger_records) AS ledger_records
	`

	counts := &DashboardCounts{}
	if err := r.db.GetContext(ctx, counts, query); err != nil {
		return nil, fmt.Errorf("failed to gather dashboard stats: %w", err)
	}

	return counts, nil
}
