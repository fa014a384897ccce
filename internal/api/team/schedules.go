package team

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// createScheduleRequest carries the fields for booking a future audit
type createScheduleRequest struct {
	Name           string    `json:"name" binding:"required"`
	OrganizationID string    `json:"organization_id" binding:"required"`
	CheckID        string    `json:"check_id" binding:"required"`
	AuditType      string    `json:"audit_type" binding:"required"`
	ScheduledDate  time.Time `json:"scheduled_date" binding:"required"`
	Recurrence     *string   `json:"recurrence"`
}

// CreateSchedule books a future audit, one-shot or recurring. The schedule
// runner turns due bookings into real audits.
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !models.ValidAuditType(req.AuditType) {
		respond.BadRequest(c, "unknown audit type "+req.AuditType)
		return
	}
	if req.Recurrence != nil && !models.ValidFrequency(*req.Recurrence) {
		respond.BadRequest(c, "unknown recurrence "+*req.Recurrence)
		return
	}
	if !req.ScheduledDate.After(time.Now()) {
		respond.BadRequest(c, "scheduled_date must be in the future")
		return
	}

	org, err := h.orgs.GetByID(c.Request.Context(), req.OrganizationID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if org == nil {
		respond.NotFound(c, "organization not found")
		return
	}
	chk, err := h.checks.GetByID(c.Request.Context(), req.CheckID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if chk == nil {
		respond.NotFound(c, "check not found")
		return
	}

	sched := &models.ScheduledAudit{
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		CheckID:        req.CheckID,
		AuditType:      req.AuditType,
		ScheduledDate:  req.ScheduledDate,
		Recurrence:     req.Recurrence,
	}
	if err := h.schedules.Create(c.Request.Context(), sched); err != nil {
		respond.Error(c, err)
		return
	}

	h.logger.Info("audit scheduled", "schedule_id", sched.ID, "name", sched.Name, "scheduled_date", sched.ScheduledDate)
	c.JSON(http.StatusCreated, sched)
}

// ListSchedules returns all audit bookings.
func (h *Handler) ListSchedules(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

// GetSchedule returns a single booking by id.
func (h *Handler) GetSchedule(c *gin.Context) {
	sched, err := h.schedules.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if sched == nil {
		respond.NotFound(c, "schedule not found")
		return
	}
	c.JSON(http.StatusOK, sched)
}

// DeactivateSchedule pauses a booking so the runner skips it.
func (h *Handler) DeactivateSchedule(c *gin.Context) {
	h.setScheduleActive(c, false)
}

// ActivateSchedule resumes a paused booking.
func (h *Handler) ActivateSchedule(c *gin.Context) {
	h.setScheduleActive(c, true)
}

func (h *Handler) setScheduleActive(c *gin.Context, active bool) {
	sched, err := h.schedules.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if sched == nil {
		respond.NotFound(c, "schedule not found")
		return
	}
	c.JSON(http.StatusOK, sched)
}
