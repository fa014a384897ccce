// standard_repository.go implements StandardRepository for versioned quality standards.
// Standards are never updated in place; publishing a revision inserts a new row.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// StandardRepository handles database operations for quality standards
type StandardRepository struct {
	db *sqlx.DB
}

// NewStandardRepository creates a new standard repository
func NewStandardRepository(db *sqlx.DB) *StandardRepository {
	return &StandardRepository{db: db}
}

// CreateTx inserts std inside the supplied transaction. Returns ErrDuplicate when
// the (name, version) pair already exists.
func (r *StandardRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, std *models.QualityStandard) error {
	query := `
		INSERT INTO quality_standards (name, version, sector, requirements, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at
	`

	err := tx.QueryRowContext(ctx, query,
		std.Name,
		std.Version,
		std.Sector,
		pq.Array(std.Requirements),
		std.CreatedBy,
	).Scan(&std.ID, &std.IsActive, &std.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create quality standard: %w", err)
	}

	return nil
}

// GetByID retrieves a standard by ID, historical versions included.
// Returns (nil, nil) when absent.
func (r *StandardRepository) GetByID(ctx context.Context, id string) (*models.QualityStandard, error) {
	query := `
		SELECT id, name, version, sector, requirements, created_by, is_active, created_at
		FROM quality_standards
		WHERE id = $1
	`

	std := &models.QualityStandard{}
	if err := r.db.GetContext(ctx, std, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quality standard: %w", err)
	}

	return std, nil
}

// List retrieves all standard versions, newest first.
func (r *StandardRepository) List(ctx context.Context) ([]*models.QualityStandard, error) {
	query := `
		SELECT id, name, version, sector, requirements, created_by, is_active, created_at
		FROM quality_standards
		ORDER BY created_at DESC
	`

	stds := []*models.QualityStandard{}
	if err := r.db.SelectContext(ctx, &stds, query); err != nil {
		return nil, fmt.Errorf("failed to list quality standards: %w", err)
	}

	return stds, nil
}

// VersionsByName returns all stored version strings for a standard name. The
// caller compares them as semver; the database only guarantees uniqueness.
func (r *StandardRepository) VersionsByName(ctx context.Context, name string) ([]string, error) {
	versions := []string{}
	query := `SELECT version FROM quality_standards WHERE LOWER(name) = LOWER($1)`
	if err := r.db.SelectContext(ctx, &versions, query, name); err != nil {
		return nil, fmt.Errorf("failed to list standard versions: %w", err)
	}
	return versions, nil
}
