// Package models - audit.go defines the Audit model and its lifecycle vocabulary. An audit
// moves initiated → in_progress → completed; the approval quorum is tracked by counters
// alongside the status rather than as separate states, matching how reviewers actually
// sign off (any order, no fixed sequence).
package models

import (
	"time"

	"github.com/lib/pq"
)

// Audit lifecycle states. Transitions are monotonic: an audit never moves backwards,
// and completed is terminal.
const (
	AuditStatusInitiated  = "initiated"
	AuditStatusInProgress = "in_progress"
	AuditStatusCompleted  = "completed"
)

// Audit type values
const (
	AuditTypeInternal      = "Internal"
	AuditTypeExternal      = "External"
	AuditTypeCompliance    = "Compliance"
	AuditTypeSecurity      = "Security"
	AuditTypeProcess       = "Process"
	AuditTypeFinancial     = "Financial"
	AuditTypeEnvironmental = "Environmental"
	AuditTypeSupplyChain   = "SupplyChain"
)

// Audit represents a time-boxed quality investigation against an organization
type Audit struct {
	ID                 int64          `json:"id" db:"id"` // Monotonic BIGSERIAL
	OrganizationID     string         `json:"organization_id" db:"organization_id"`
	CheckID            string         `json:"check_id" db:"check_id"`
	Auditor            string         `json:"auditor" db:"auditor"` // Identity key of the initiator
	AuditType          string         `json:"audit_type" db:"audit_type"`
	Scope              string         `json:"scope" db:"scope"`
	Status             string         `json:"status" db:"status"`
	InitiatedAt        time.Time      `json:"initiated_at" db:"initiated_at"`
	ExpectedCompletion time.Time      `json:"expected_completion" db:"expected_completion"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	Findings           pq.StringArray `json:"findings,omitempty" db:"findings"`
	ComplianceScore    *float64       `json:"compliance_score,omitempty" db:"compliance_score"` // 0–100, set at completion
	Recommendations    pq.StringArray `json:"recommendations,omitempty" db:"recommendations"`
	ApprovalsReceived  int            `json:"approvals_received" db:"approvals_received"`
	ApprovalsRequired  int            `json:"approvals_required" db:"approvals_required"`
}

// AuditApproval records a single reviewer's sign-off. The (audit_id, approver_id)
// pair is unique so the same approver can never inflate the counter.
type AuditApproval struct {
	AuditID    int64     `json:"audit_id" db:"audit_id"`
	ApproverID string    `json:"approver_id" db:"approver_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ValidAuditType reports whether t is one of the supported audit types.
func ValidAuditType(t string) bool {
	switch t {
	case AuditTypeInternal, AuditTypeExternal, AuditTypeCompliance, AuditTypeSecurity,
		AuditTypeProcess, AuditTypeFinancial, AuditTypeEnvironmental, AuditTypeSupplyChain:
		return true
	}
	return false
}

// QuorumMet reports whether the audit has collected enough approvals to be completed.
func (a *Audit) QuorumMet() bool {
	return a.ApprovalsReceived >= a.ApprovalsRequired
}

// IsCompleted reports whether the audit has reached its terminal state.
func (a *Audit) IsCompleted() bool {
	return a.Status == AuditStatusCompleted
}
