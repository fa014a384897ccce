// Package audits implements handlers for the audit lifecycle (initiate, approve,
// complete) and the compliance statistics built on top of completed audits.
package audits

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// Handler handles audit lifecycle API requests
type Handler struct {
	engine *workflow.Engine
	audits *repositories.AuditRepository
	stats  *repositories.StatsRepository
	logger *slog.Logger
}

// NewHandler creates an audit handler.
func NewHandler(
	engine *workflow.Engine,
	audits *repositories.AuditRepository,
	stats *repositories.StatsRepository,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		engine: engine,
		audits: audits,
		stats:  stats,
		logger: logger,
	}
}

// auditID parses the :id path parameter. Audit ids are server-assigned int64
// sequence values, not UUIDs.
func auditID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		respond.BadRequest(c, "invalid audit id")
		return 0, false
	}
	return id, true
}

// Initiate opens a new audit against an organization.
func (h *Handler) Initiate(c *gin.Context) {
	var in workflow.InitiateAuditInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	audit, err := h.engine.InitiateAudit(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, audit)
}

// List returns audits matching the query filters: organization_id, status, and
// an initiation window given as RFC 3339 from/to timestamps.
func (h *Handler) List(c *gin.Context) {
	var filters repositories.AuditFilters

	if v := c.Query("organization_id"); v != "" {
		filters.OrganizationID = &v
	}
	if v := c.Query("status"); v != "" {
		if v != models.AuditStatusInitiated && v != models.AuditStatusInProgress && v != models.AuditStatusCompleted {
			respond.BadRequest(c, "unknown status "+strconv.Quote(v))
			return
		}
		filters.Status = &v
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond.BadRequest(c, "invalid from timestamp, want RFC 3339")
			return
		}
		filters.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond.BadRequest(c, "invalid to timestamp, want RFC 3339")
			return
		}
		filters.To = &t
	}

	audits, err := h.engine.ListAudits(c.Request.Context(), filters)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

// Get returns a single audit by id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := auditID(c)
	if !ok {
		return
	}

	audit, err := h.engine.GetAudit(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}

// Approvals returns the recorded sign-offs for an audit in approval order.
func (h *Handler) Approvals(c *gin.Context) {
	id, ok := auditID(c)
	if !ok {
		return
	}

	approvals, err := h.audits.Approvers(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, approvals)
}

// approveRequest carries the approver identity for a sign-off
type approveRequest struct {
	ApproverID string `json:"approver_id" binding:"required"`
}

// Approve records one reviewer's sign-off on an audit. Each approver counts
// once; a repeat sign-off or one past the quorum is rejected with a conflict.
func (h *Handler) Approve(c *gin.Context) {
	id, ok := auditID(c)
	if !ok {
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	audit, err := h.engine.ApproveAudit(c.Request.Context(), id, req.ApproverID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}

// Complete closes an audit with its findings and compliance score. The approval
// quorum must already be satisfied.
func (h *Handler) Complete(c *gin.Context) {
	id, ok := auditID(c)
	if !ok {
		return
	}

	var in workflow.CompleteAuditInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	audit, err := h.engine.CompleteAudit(c.Request.Context(), id, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
