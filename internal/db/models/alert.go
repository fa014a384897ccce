// Package models - alert.go defines the Alert model. Alerts are derived records emitted
// as a side effect of lifecycle transitions (an audit completing out of compliance range,
// ledger shipping degradation); they are never a source of truth themselves.
package models

import "time"

// Alert categories
const (
	AlertCategoryDeviation  = "deviation"
	AlertCategoryCompliance = "compliance"
	AlertCategorySystem     = "system"
)

// Alert severities, lowest to highest
const (
	AlertSeverityLow      = "low"
	AlertSeverityMedium   = "medium"
	AlertSeverityHigh     = "high"
	AlertSeverityCritical = "critical"
)

// Alert represents a notification raised by the workflow engine
type Alert struct {
	ID        string    `json:"id" db:"id"`
	Category  string    `json:"category" db:"category"`
	Severity  string    `json:"severity" db:"severity"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	AuditID   *int64    `json:"audit_id,omitempty" db:"audit_id"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
