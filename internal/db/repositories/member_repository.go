// member_repository.go implements MemberRepository for organization team rosters.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// MemberRepository handles database operations for company members
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create inserts member and fills in the server-assigned id and timestamp.
// Returns ErrDuplicate when the name or wallet address is already registered
// within the organization.
func (r *MemberRepository) Create(ctx context.Context, member *models.CompanyMember) error {
	query := `
		INSERT INTO company_members (organization_id, name, role, wallet_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, joined_at
	`

	err := r.db.QueryRowContext(ctx, query,
		member.OrganizationID,
		member.Name,
		member.Role,
		member.WalletAddress,
	).Scan(&member.ID, &member.IsActive, &member.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// GetByID retrieves a member by ID. Returns (nil, nil) when absent.
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*models.CompanyMember, error) {
	query := `
		SELECT id, organization_id, name, role, wallet_address, is_active, joined_at
		FROM company_members
		WHERE id = $1
	`

	member := &models.CompanyMember{}
	if err := r.db.GetContext(ctx, member, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// GetByWallet retrieves a member by wallet address within an organization.
// Returns (nil, nil) when absent.
func (r *MemberRepository) GetByWallet(ctx context.Context, orgID, wallet string) (*models.CompanyMember, error) {
	query := `
		SELECT id, organization_id, name, role, wallet_address, is_active, joined_at
		FROM company_members
		WHERE organization_id = $1 AND LOWER(wallet_address) = LOWER($2)
	`

	member := &models.CompanyMember{}
	if err := r.db.GetContext(ctx, member, query, orgID, wallet); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by wallet: %w", err)
	}

	return member, nil
}

// ListByOrganization retrieves an organization's members, longest-serving first.
func (r *MemberRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.CompanyMember, error) {
	query := `
		SELECT id, organization_id, name, role, wallet_address, is_active, joined_at
		FROM company_members
		WHERE organization_id = $1
		ORDER BY joined_at ASC
	`

	members := []*models.CompanyMember{}
	if err := r.db.SelectContext(ctx, &members, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// SetActive toggles the member's active flag. Returns (nil, nil) when absent.
func (r *MemberRepository) SetActive(ctx context.Context, id string, active bool) (*models.CompanyMember, error) {
	query := `
		UPDATE company_members
		SET is_active = $2
		WHERE id = $1
		RETURNING id, organization_id, name, role, wallet_address, is_active, joined_at
	`

	member := &models.CompanyMember{}
	if err := r.db.GetContext(ctx, member, query, id, active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	return member, nil
}
