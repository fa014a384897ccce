// Package team implements handlers for the operational side of the dashboard:
// company members, scheduled audits, and alerts. These records are registry
// state around the audit lifecycle rather than part of it, so mutations here
// are not ledger-anchored.
package team

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
)

// Handler handles team, schedule, and alert API requests
type Handler struct {
	members   *repositories.MemberRepository
	schedules *repositories.ScheduleRepository
	alerts    *repositories.AlertRepository
	orgs      *repositories.OrganizationRepository
	checks    *repositories.CheckRepository
	logger    *slog.Logger
}

// NewHandler creates a team handler.
func NewHandler(
	members *repositories.MemberRepository,
	schedules *repositories.ScheduleRepository,
	alerts *repositories.AlertRepository,
	orgs *repositories.OrganizationRepository,
	checks *repositories.CheckRepository,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		members:   members,
		schedules: schedules,
		alerts:    alerts,
		orgs:      orgs,
		checks:    checks,
		logger:    logger,
	}
}

// addMemberRequest carries the fields for enrolling a member
type addMemberRequest struct {
	Name          string `json:"name" binding:"required"`
	Role          string `json:"role" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// AddMember enrolls a member into an organization's team roster. The wallet
// address doubles as the approver identity on audit sign-offs and is unique per
// organization.
func (h *Handler) AddMember(c *gin.Context) {
	orgID := c.Param("id")

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		respond.BadRequest(c, "unknown role "+req.Role)
		return
	}
	if !models.ValidWalletAddress(req.WalletAddress) {
		respond.BadRequest(c, "malformed wallet address")
		return
	}

	org, err := h.orgs.GetByID(c.Request.Context(), orgID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if org == nil {
		respond.NotFound(c, "organization not found")
		return
	}

	member := &models.CompanyMember{
		OrganizationID: orgID,
		Name:           req.Name,
		Role:           req.Role,
		WalletAddress:  req.WalletAddress,
	}
	if err := h.members.Create(c.Request.Context(), member); err != nil {
		respond.Error(c, err)
		return
	}

	h.logger.Info("member enrolled", "member_id", member.ID, "organization_id", orgID, "role", member.Role)
	c.JSON(http.StatusCreated, member)
}

// ListMembers returns an organization's roster in enrollment order.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.members.ListByOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// GetMember returns a single member by id.
func (h *Handler) GetMember(c *gin.Context) {
	member, err := h.members.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if member == nil {
		respond.NotFound(c, "member not found")
		return
	}
	c.JSON(http.StatusOK, member)
}

// DeactivateMember marks a member inactive without removing their approval history.
func (h *Handler) DeactivateMember(c *gin.Context) {
	h.setMemberActive(c, false)
}

// ActivateMember re-enables a previously deactivated member.
func (h *Handler) ActivateMember(c *gin.Context) {
	h.setMemberActive(c, true)
}

func (h *Handler) setMemberActive(c *gin.Context, active bool) {
	member, err := h.members.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if member == nil {
		respond.NotFound(c, "member not found")
		return
	}
	c.JSON(http.StatusOK, member)
}
