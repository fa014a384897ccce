package registry

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// CreateStandard publishes a new version of a quality standard. Versions are
// semantic and must strictly increase per standard name.
func (h *Handler) CreateStandard(c *gin.Context) {
	var in workflow.CreateStandardInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	std, err := h.engine.CreateStandard(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, std)
}

// ListStandards returns all published standard versions.
func (h *Handler) ListStandards(c *gin.Context) {
	standards, err := h.standards.List(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, standards)
}

// GetStandard returns a single standard version by id.
func (h *Handler) GetStandard(c *gin.Context) {
	std, err := h.standards.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if std == nil {
		respond.NotFound(c, "standard not found")
		return
	}
	c.JSON(http.StatusOK, std)
}
