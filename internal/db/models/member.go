// Package models - member.go defines the CompanyMember model for an organization's team
// roster. Members are identified externally by a wallet address, which doubles as the
// approver identity on audit sign-offs.
package models

import (
	"regexp"
	"time"
)

// Member role values
const (
	RoleQAManager = "QA Manager"
	RoleQAStaff   = "QA Staff"
	RoleAuditor   = "Auditor"
	RoleViewer    = "Viewer"
)

// walletAddressRe matches the external identity key format: 0x followed by 40 hex chars.
var walletAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// CompanyMember represents a team member within an organization
type CompanyMember struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Role           string    `json:"role" db:"role"`
	WalletAddress  string    `json:"wallet_address" db:"wallet_address"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	JoinedAt       time.Time `json:"joined_at" db:"joined_at"`
}

// ValidWalletAddress reports whether addr is a well-formed external identity key.
func ValidWalletAddress(addr string) bool {
	return walletAddressRe.MatchString(addr)
}

// ValidRole reports whether r is one of the supported member roles.
func ValidRole(r string) bool {
	switch r {
	case RoleQAManager, RoleQAStaff, RoleAuditor, RoleViewer:
		return true
	}
	return false
}
