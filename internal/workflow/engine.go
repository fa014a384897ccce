package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	goversion "github.com/hashicorp/go-version"
	"github.com/jmoiron/sqlx"

	"github.com/quality-ledger/quality-ledger/internal/config"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/ledger"
	"github.com/quality-ledger/quality-ledger/internal/telemetry"
)

// Compliance bands derived from a completed audit's score
const (
	BandCompliant = "compliant"
	BandWarning   = "warning"
	BandCritical  = "critical"
)

// Engine orchestrates the audit lifecycle
type Engine struct {
	db        *sqlx.DB
	orgs      *repositories.OrganizationRepository
	standards *repositories.StandardRepository
	checks    *repositories.CheckRepository
	audits    *repositories.AuditRepository
	alerts    *repositories.AlertRepository
	anchorer  *ledger.Anchorer
	policy    *config.WorkflowConfig
	logger    *slog.Logger
}

// NewEngine creates a workflow engine over the shared database handle.
func NewEngine(
	db *sqlx.DB,
	orgs *repositories.OrganizationRepository,
	standards *repositories.StandardRepository,
	checks *repositories.CheckRepository,
	audits *repositories.AuditRepository,
	alerts *repositories.AlertRepository,
	anchorer *ledger.Anchorer,
	policy *config.WorkflowConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:        db,
		orgs:      orgs,
		standards: standards,
		checks:    checks,
		audits:    audits,
		alerts:    alerts,
		anchorer:  anchorer,
		policy:    policy,
		logger:    logger,
	}
}

// withTx runs fn inside a transaction, rolling back on any error.
func (e *Engine) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "error", rbErr)
		}
		if errors.Is(err, ledger.ErrUnavailable) {
			e.emitLedgerAlert(ctx, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Band classifies a compliance score against the configured thresholds.
func (e *Engine) Band(score float64) string {
	switch {
	case score >= e.policy.CompliantThreshold:
		return BandCompliant
	case score >= e.policy.WarningThreshold:
		return BandWarning
	default:
		return BandCritical
	}
}

// CompliantThreshold returns the configured lower bound of the compliant band.
func (e *Engine) CompliantThreshold() float64 { return e.policy.CompliantThreshold }

// WarningThreshold returns the configured lower bound of the warning band.
func (e *Engine) WarningThreshold() float64 { return e.policy.WarningThreshold }

// ---------------------------------------------------------------------------
// Entity registration
// ---------------------------------------------------------------------------

// RegisterOrganizationInput carries the fields for organization registration
type RegisterOrganizationInput struct {
	Name    string `json:"name" binding:"required"`
	Sector  string `json:"sector" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// RegisterOrganization registers an organization and anchors the registration.
func (e *Engine) RegisterOrganization(ctx context.Context, in RegisterOrganizationInput) (*models.Organization, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Sector == "" {
		return nil, fmt.Errorf("%w: sector is required", ErrValidation)
	}
	if in.Address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrValidation)
	}

	org := &models.Organization{
		Name:    in.Name,
		Sector:  in.Sector,
		Address: in.Address,
	}

	err := e.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := e.orgs.CreateTx(ctx, tx, org); err != nil {
			return err
		}
		_, err := e.anchorer.AnchorTx(ctx, tx, models.LedgerRecordOrganization, org.ID, org)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("organization registered", "organization_id", org.ID, "name", org.Name)
	return org, nil
}

// CreateStandardInput carries the fields for publishing a standard version
type CreateStandardInput struct {
	Name         string   `json:"name" binding:"required"`
	Version      string   `json:"version" binding:"required"`
	Sector       string   `json:"sector"`
	Requirements []string `json:"requirements"`
	CreatedBy    string   `json:"created_by"`
}

// CreateStandard publishes a new standard version. Versions are semantic and
// must strictly increase per standard name; an equal or lower version is
// rejected rather than silently reordered.
func (e *Engine) CreateStandard(ctx context.Context, in CreateStandardInput) (*models.QualityStandard, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	newVersion, err := goversion.NewVersion(in.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid version %q", ErrValidation, in.Version)
	}
	if len(in.Requirements) == 0 {
		return nil, fmt.Errorf("%w: requirements must not be empty", ErrValidation)
	}

	existing, err := e.standards.VersionsByName(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	for _, raw := range existing {
		v, err := goversion.NewVersion(raw)
		if err != nil {
			continue
		}
		if newVersion.LessThanOrEqual(v) {
			return nil, fmt.Errorf("%w: version %s must be greater than existing %s", ErrValidation, in.Version, raw)
		}
	}

	std := &models.QualityStandard{
		Name:         in.Name,
		Version:      in.Version,
		Sector:       in.Sector,
		Requirements: in.Requirements,
	}
	if in.CreatedBy != "" {
		std.CreatedBy = &in.CreatedBy
	}

	err = e.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := e.standards.CreateTx(ctx, tx, std); err != nil {
			return err
		}
		_, err := e.anchorer.AnchorTx(ctx, tx, models.LedgerRecordStandard, std.ID, std)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("quality standard published", "standard_id", std.ID, "name", std.Name, "version", std.Version)
	return std, nil
}

// CreateCheckInput carries the fields for defining a quality check
type CreateCheckInput struct {
	StandardID    string   `json:"standard_id" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Criteria      []string `json:"criteria"`
	Frequency     string   `json:"frequency" binding:"required"`
	BlockchainRef string   `json:"blockchain_ref"`
}

// CreateCheck defines a quality check under an existing standard.
func (e *Engine) CreateCheck(ctx context.Context, in CreateCheckInput) (*models.QualityCheck, error) {
	if in.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !models.ValidFrequency(in.Frequency) {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrValidation, in.Frequency)
	}

	std, err := e.standards.GetByID(ctx, in.StandardID)
	if err != nil {
		return nil, err
	}
	if std == nil || !std.IsActive {
		return nil, fmt.Errorf("%w: active standard %s", ErrNotFound, in.StandardID)
	}

	chk := &models.QualityCheck{
		StandardID:    in.StandardID,
		Description:   in.Description,
		Criteria:      in.Criteria,
		Frequency:     in.Frequency,
		BlockchainRef: in.BlockchainRef,
	}
	if chk.BlockchainRef == "" {
		chk.BlockchainRef = uuid.NewString()
	}

	err = e.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := e.checks.CreateTx(ctx, tx, chk); err != nil {
			return err
		}
		_, err := e.anchorer.AnchorTx(ctx, tx, models.LedgerRecordCheck, chk.ID, chk)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("quality check defined", "check_id", chk.ID, "standard_id", chk.StandardID)
	return chk, nil
}

// ---------------------------------------------------------------------------
// Audit lifecycle
// ---------------------------------------------------------------------------

// InitiateAuditInput carries the fields for opening an audit
type InitiateAuditInput struct {
	OrganizationID     string    `json:"organization_id" binding:"required"`
	CheckID            string    `json:"check_id" binding:"required"`
	Auditor            string    `json:"auditor" binding:"required"`
	AuditType          string    `json:"audit_type" binding:"required"`
	Scope              string    `json:"scope"`
	ExpectedCompletion time.Time `json:"expected_completion" binding:"required"`
}

// InitiateAudit opens an audit against an organization. The approval quorum is
// fixed at initiation from the configured policy for the audit type.
func (e *Engine) InitiateAudit(ctx context.Context, in InitiateAuditInput) (*models.Audit, error) {
	if !models.ValidAuditType(in.AuditType) {
		return nil, fmt.Errorf("%w: unknown audit type %q", ErrValidation, in.AuditType)
	}
	if !models.ValidWalletAddress(in.Auditor) {
		return nil, fmt.Errorf("%w: malformed auditor identity", ErrValidation)
	}
	if !in.ExpectedCompletion.After(time.Now()) {
		return nil, fmt.Errorf("%w: expected_completion must be in the future", ErrValidation)
	}

	org, err := e.orgs.GetByID(ctx, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: organization %s", ErrNotFound, in.OrganizationID)
	}
	if !org.IsActive {
		return nil, fmt.Errorf("%w: organization %s is deactivated", ErrValidation, in.OrganizationID)
	}

	chk, err := e.checks.GetByID(ctx, in.CheckID)
	if err != nil {
		return nil, err
	}
	if chk == nil {
		return nil, fmt.Errorf("%w: check %s", ErrNotFound, in.CheckID)
	}
	if !chk.IsActive {
		return nil, fmt.Errorf("%w: check %s is deactivated", ErrValidation, in.CheckID)
	}

	audit := &models.Audit{
		OrganizationID:     in.OrganizationID,
		CheckID:            in.CheckID,
		Auditor:            in.Auditor,
		AuditType:          in.AuditType,
		Scope:              in.Scope,
		Status:             models.AuditStatusInitiated,
		ExpectedCompletion: in.ExpectedCompletion,
		ApprovalsRequired:  e.policy.QuorumFor(in.AuditType),
	}

	err = e.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := e.audits.CreateTx(ctx, tx, audit); err != nil {
			return err
		}
		_, err := e.anchorer.AnchorTx(ctx, tx, models.LedgerRecordAuditInitiate, strconv.FormatInt(audit.ID, 10), audit)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.AuditsInitiatedTotal.WithLabelValues(audit.AuditType).Inc()
	e.logger.Info("audit initiated",
		"audit_id", audit.ID,
		"organization_id", audit.OrganizationID,
		"audit_type", audit.AuditType,
		"approvals_required", audit.ApprovalsRequired)
	return audit, nil
}

// ApproveAudit records one reviewer's sign-off. Each approver counts once; an
// approval after the quorum is full or after completion is rejected.
func (e *Engine) ApproveAudit(ctx context.Context, auditID int64, approverID string) (*models.Audit, error) {
	if !models.ValidWalletAddress(approverID) {
		return nil, fmt.Errorf("%w: malformed approver identity", ErrValidation)
	}

	var approved *models.Audit
	err := e.withTx(ctx, func(tx *sqlx.Tx) error {
		audit, err := e.audits.RecordApprovalTx(ctx, tx, auditID, approverID)
		if err != nil {
			return err
		}
		if audit == nil {
			// Nothing matched: the audit is missing, already completed, or its
			// quorum is full. A fresh read off the pool decides which; the
			// transaction may already be aborted by a foreign-key rejection.
			current, err := e.audits.GetByID(ctx, auditID)
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("%w: audit %d", ErrNotFound, auditID)
			}
			if current.IsCompleted() {
				return ErrAlreadyCompleted
			}
			return ErrQuorumReached
		}

		approval := &models.AuditApproval{AuditID: auditID, ApproverID: approverID}
		_, err = e.anchorer.AnchorTx(ctx, tx, models.LedgerRecordAuditApprove, strconv.FormatInt(auditID, 10), approval)
		if err != nil {
			return err
		}

		approved = audit
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateApproval) {
			e.logger.Warn("duplicate approval rejected", "audit_id", auditID, "approver_id", approverID)
		}
		return nil, err
	}

	telemetry.AuditApprovalsTotal.Inc()
	e.logger.Info("audit approved",
		"audit_id", auditID,
		"approver_id", approverID,
		"approvals_received", approved.ApprovalsReceived,
		"approvals_required", approved.ApprovalsRequired)
	return approved, nil
}

// CompleteAuditInput carries the completion report
type CompleteAuditInput struct {
	Findings        []string `json:"findings"`
	ComplianceScore float64  `json:"compliance_score"`
	Recommendations []string `json:"recommendations"`
}

// CompleteAudit closes an audit with its findings and score. Requires the
// approval quorum to be met; completion is terminal.
func (e *Engine) CompleteAudit(ctx context.Context, auditID int64, in CompleteAuditInput) (*models.Audit, error) {
	if in.ComplianceScore < 0 || in.ComplianceScore > 100 {
		return nil, fmt.Errorf("%w: %v", ErrScoreOutOfRange, in.ComplianceScore)
	}

	var completed *models.Audit
	err := e.withTx(ctx, func(tx *sqlx.Tx) error {
		audit, err := e.audits.CompleteTx(ctx, tx, auditID, in.Findings, in.ComplianceScore, in.Recommendations)
		if err != nil {
			return err
		}
		if audit == nil {
			current, err := e.audits.GetByID(ctx, auditID)
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("%w: audit %d", ErrNotFound, auditID)
			}
			if current.IsCompleted() {
				return ErrAlreadyCompleted
			}
			return fmt.Errorf("%w: %d of %d approvals", ErrInsufficientApprovals,
				current.ApprovalsReceived, current.ApprovalsRequired)
		}

		_, err = e.anchorer.AnchorTx(ctx, tx, models.LedgerRecordAuditComplete, strconv.FormatInt(auditID, 10), audit)
		if err != nil {
			return err
		}

		completed = audit
		return nil
	})
	if err != nil {
		return nil, err
	}

	band := e.Band(in.ComplianceScore)
	telemetry.AuditsCompletedTotal.WithLabelValues(band).Inc()
	e.logger.Info("audit completed",
		"audit_id", auditID,
		"compliance_score", in.ComplianceScore,
		"band", band)

	if band != BandCompliant {
		e.emitComplianceAlert(ctx, completed, band)
	}
	return completed, nil
}

// emitComplianceAlert raises an alert for an out-of-range completion. Alerts are
// derived records, not sources of truth, so a failed insert is logged and
// swallowed rather than failing the already-committed completion.
func (e *Engine) emitComplianceAlert(ctx context.Context, audit *models.Audit, band string) {
	alert := &models.Alert{
		Category: models.AlertCategoryCompliance,
		Severity: models.AlertSeverityMedium,
		Title:    "Audit completed below compliance threshold",
		Message: fmt.Sprintf("Audit %d for organization %s scored %.1f",
			audit.ID, audit.OrganizationID, *audit.ComplianceScore),
		AuditID: &audit.ID,
	}
	if band == BandCritical {
		alert.Category = models.AlertCategoryDeviation
		alert.Severity = models.AlertSeverityCritical
		alert.Title = "Audit completed in critical range"
	}

	if err := e.alerts.Create(ctx, alert); err != nil {
		e.logger.Error("failed to emit compliance alert", "audit_id", audit.ID, "error", err)
		return
	}
	telemetry.AlertsEmittedTotal.WithLabelValues(alert.Category, alert.Severity).Inc()
}

// emitLedgerAlert raises a system alert when a mutation is rolled back because
// the external ledger destination would not confirm its record. The alert insert
// happens outside the failed transaction; if it also fails there is nothing left
// but the log line.
func (e *Engine) emitLedgerAlert(ctx context.Context, cause error) {
	alert := &models.Alert{
		Category: models.AlertCategorySystem,
		Severity: models.AlertSeverityHigh,
		Title:    "Ledger destination unavailable",
		Message:  fmt.Sprintf("A mutation was rolled back: %v", cause),
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		e.logger.Error("failed to emit ledger alert", "error", err)
		return
	}
	telemetry.AlertsEmittedTotal.WithLabelValues(alert.Category, alert.Severity).Inc()
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// GetAudit fetches a single audit.
func (e *Engine) GetAudit(ctx context.Context, auditID int64) (*models.Audit, error) {
	audit, err := e.audits.GetByID(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, fmt.Errorf("%w: audit %d", ErrNotFound, auditID)
	}
	return audit, nil
}

// ListAudits lists audits matching the filters.
func (e *Engine) ListAudits(ctx context.Context, filters repositories.AuditFilters) ([]*models.Audit, error) {
	return e.audits.List(ctx, filters)
}
