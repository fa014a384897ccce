package team

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
)

// ListAlerts returns alerts newest first, filtered by the category, severity,
// and unread query parameters.
func (h *Handler) ListAlerts(c *gin.Context) {
	var filters repositories.AlertFilters
	if v := c.Query("category"); v != "" {
		filters.Category = &v
	}
	if v := c.Query("severity"); v != "" {
		filters.Severity = &v
	}
	if c.Query("unread") == "true" {
		filters.Unread = true
	}

	alerts, err := h.alerts.List(c.Request.Context(), filters)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// MarkAlertRead acknowledges an alert.
func (h *Handler) MarkAlertRead(c *gin.Context) {
	alert, err := h.alerts.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if alert == nil {
		respond.NotFound(c, "alert not found")
		return
	}
	c.JSON(http.StatusOK, alert)
}

// UnreadAlertCount returns the number of unacknowledged alerts, used for the
// dashboard badge.
func (h *Handler) UnreadAlertCount(c *gin.Context) {
	count, err := h.alerts.UnreadCount(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
