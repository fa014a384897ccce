// check_repository.go implements CheckRepository for quality check definitions.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// CheckRepository handles database operations for quality checks
type CheckRepository struct {
	db *sqlx.DB
}

// NewCheckRepository creates a new check repository
func NewCheckRepository(db *sqlx.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

// CreateTx inserts chk inside the supplied transaction and fills in the
// server-assigned id and timestamp.
func (r *CheckRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, chk *models.QualityCheck) error {
	query := `
		INSERT INTO quality_checks (standard_id, description, criteria, frequency, blockchain_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at
	`

	err := tx.QueryRowContext(ctx, query,
		chk.StandardID,
		chk.Description,
		pq.Array(chk.Criteria),
		chk.Frequency,
		chk.BlockchainRef,
	).Scan(&chk.ID, &chk.IsActive, &chk.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create quality check: %w", err)
	}

	return nil
}

// GetByID retrieves a check by ID. Returns (nil, nil) when absent.
func (r *CheckRepository) GetByID(ctx context.Context, id string) (*models.QualityCheck, error) {
	query := `
		SELECT id, standard_id, description, criteria, frequency, blockchain_ref, is_active, created_at
		FROM quality_checks
		WHERE id = $1
	`

	chk := &models.QualityCheck{}
	if err := r.db.GetContext(ctx, chk, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quality check: %w", err)
	}

	return chk, nil
}

// List retrieves all checks, newest first.
func (r *CheckRepository) List(ctx context.Context) ([]*models.QualityCheck, error) {
	query := `
		SELECT id, standard_id, description, criteria, frequency, blockchain_ref, is_active, created_at
		FROM quality_checks
		ORDER BY created_at DESC
	`

	checks := []*models.QualityCheck{}
	if err := r.db.SelectContext(ctx, &checks, query); err != nil {
		return nil, fmt.Errorf("failed to list quality checks: %w", err)
	}

	return checks, nil
}
