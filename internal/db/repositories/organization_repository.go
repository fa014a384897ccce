// organization_repository.go implements OrganizationRepository, providing database
// queries for organization registration, lookup, listing, and activation toggling.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CreateTx inserts org inside the supplied transaction and fills in the
// server-assigned id and timestamp. Returns ErrDuplicate if the name is taken.
func (r *OrganizationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, sector, address)
		VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at
	`

	err := tx.QueryRowContext(ctx, query, org.Name, org.Sector, org.Address).Scan(
		&org.ID,
		&org.IsActive,
		&org.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetByID retrieves an organization by ID. Returns (nil, nil) when absent.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT id, name, sector, address, is_active, created_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}
	if err := r.db.GetContext(ctx, org, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// List retrieves all organizations, newest first.
func (r *OrganizationRepository) List(ctx context.Context) ([]*models.Organization, error) {
	query := `
		SELECT id, name, sector, address, is_active, created_at
		FROM organizations
		ORDER BY created_at DESC
	`

	orgs := []*models.Organization{}
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	return orgs, nil
}

// SetActive toggles the organization's active flag. Returns (nil, nil) when absent.
func (r *OrganizationRepository) SetActive(ctx context.Context, id string, active bool) (*models.Organization, error) {
	query := `
		UPDATE organizations
		SET is_active = $2
		WHERE id = $1
		RETURNING id, name, sector, address, is_active, created_at
	`

	org := &models.Organization{}
	if err := r.db.GetContext(ctx, org, query, id, active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// Count returns the total number of organizations.
func (r *OrganizationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM organizations`); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}
