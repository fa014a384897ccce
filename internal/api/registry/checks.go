package registry

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// CreateCheck defines a quality check under an existing standard.
func (h *Handler) CreateCheck(c *gin.Context) {
	var in workflow.CreateCheckInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chk, err := h.engine.CreateCheck(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, chk)
}

// ListChecks returns all defined quality checks.
func (h *Handler) ListChecks(c *gin.Context) {
	checks, err := h.checks.List(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, checks)
}

// GetCheck returns a single quality check by id.
func (h *Handler) GetCheck(c *gin.Context) {
	chk, err := h.checks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if chk == nil {
		respond.NotFound(c, "check not found")
		return
	}
	c.JSON(http.StatusOK, chk)
}
