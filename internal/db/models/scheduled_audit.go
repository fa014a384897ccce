// Package models - scheduled_audit.go defines the ScheduledAudit model for recurring or
// one-shot audit bookings that the schedule runner turns into real audits when due.
package models

import "time"

// ScheduledAudit represents a future audit booking
type ScheduledAudit struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"` // Globally unique
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	CheckID        string     `json:"check_id" db:"check_id"`
	AuditType      string     `json:"audit_type" db:"audit_type"`
	ScheduledDate  time.Time  `json:"scheduled_date" db:"scheduled_date"`
	Recurrence     *string    `json:"recurrence,omitempty" db:"recurrence"` // nil = one-shot; otherwise a check frequency value
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty" db:"last_run_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// NextOccurrence returns the schedule's next due date after the current one, or the
// zero time for one-shot schedules.
func (s *ScheduledAudit) NextOccurrence() time.Time {
	if s.Recurrence == nil {
		return time.Time{}
	}
	switch *s.Recurrence {
	case FrequencyWeekly:
		return s.ScheduledDate.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return s.ScheduledDate.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return s.ScheduledDate.AddDate(0, 3, 0)
	case FrequencyAnnually:
		return s.ScheduledDate.AddDate(1, 0, 0)
	}
	return time.Time{}
}
