package registry

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// CreateOrganization registers a new organization and anchors the registration.
func (h *Handler) CreateOrganization(c *gin.Context) {
	var in workflow.RegisterOrganizationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	org, err := h.engine.RegisterOrganization(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

// ListOrganizations returns all registered organizations.
func (h *Handler) ListOrganizations(c *gin.Context) {
	orgs, err := h.orgs.List(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}

// GetOrganization returns a single organization by id.
func (h *Handler) GetOrganization(c *gin.Context) {
	org, err := h.orgs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if org == nil {
		respond.NotFound(c, "organization not found")
		return
	}
	c.JSON(http.StatusOK, org)
}

// DeactivateOrganization marks an organization inactive. Deactivation blocks new
// audits against the organization but leaves its history queryable.
func (h *Handler) DeactivateOrganization(c *gin.Context) {
	h.setOrganizationActive(c, false)
}

// ActivateOrganization re-enables a previously deactivated organization.
func (h *Handler) ActivateOrganization(c *gin.Context) {
	h.setOrganizationActive(c, true)
}

func (h *Handler) setOrganizationActive(c *gin.Context, active bool) {
	org, err := h.orgs.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if org == nil {
		respond.NotFound(c, "organization not found")
		return
	}
	h.logger.Info("organization active flag changed", "organization_id", org.ID, "is_active", active)
	c.JSON(http.StatusOK, org)
}
