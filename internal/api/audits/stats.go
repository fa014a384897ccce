package audits

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
)

// Compliance returns the compliance projection: per-organization completed audit
// counts, average score and band, plus a breakdown by audit type. The optional
// organization_id query parameter scopes both views to one organization.
func (h *Handler) Compliance(c *gin.Context) {
	orgID := c.Query("organization_id")

	orgs, err := h.stats.ComplianceByOrganization(c.Request.Context(),
		h.engine.CompliantThreshold(), h.engine.WarningThreshold(), orgID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	categories, err := h.stats.ComplianceByCategory(c.Request.Context(), orgID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"organizations": orgs,
		"by_category":   categories,
	})
}

// Monthly returns audit activity aggregated by initiation month over the
// trailing window. The months query parameter defaults to 12, capped at 60.
func (h *Handler) Monthly(c *gin.Context) {
	months := 12
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respond.BadRequest(c, "invalid months parameter")
			return
		}
		months = n
	}
	if months > 60 {
		months = 60
	}

	rows, err := h.stats.MonthlyBreakdown(c.Request.Context(), months)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Dashboard returns the headline counts for the overview page in a single
// database round trip.
func (h *Handler) Dashboard(c *gin.Context) {
	counts, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
