// Package models - quality_check.go defines the QualityCheck model describing how an
// organization is audited against a standard: the criteria inspected and how often.
package models

import (
	"time"

	"github.com/lib/pq"
)

// Check frequency values
const (
	FrequencyWeekly    = "Weekly"
	FrequencyMonthly   = "Monthly"
	FrequencyQuarterly = "Quarterly"
	FrequencyAnnually  = "Annually"
)

// QualityCheck represents an executable check definition bound to an active standard
type QualityCheck struct {
	ID            string         `json:"id" db:"id"`
	StandardID    string         `json:"standard_id" db:"standard_id"`
	Description   string         `json:"description" db:"description"`
	Criteria      pq.StringArray `json:"criteria" db:"criteria"`
	Frequency     string         `json:"frequency" db:"frequency"`
	BlockchainRef string         `json:"blockchain_ref" db:"blockchain_ref"` // Opaque anchor reference; generated when absent
	IsActive      bool           `json:"is_active" db:"is_active"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// ValidFrequency reports whether f is one of the supported check frequencies.
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}
