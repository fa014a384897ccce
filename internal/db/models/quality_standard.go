// Package models - quality_standard.go defines the QualityStandard model. Standards are
// versioned definitional records: publishing a revision inserts a new row under the same
// name with a higher semver, so any historical standard remains resolvable by its id.
package models

import (
	"time"

	"github.com/lib/pq"
)

// QualityStandard represents one version of a named quality standard
type QualityStandard struct {
	ID           string         `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Version      string         `json:"version" db:"version"` // Semver; strictly increasing per name
	Sector       string         `json:"sector" db:"sector"`
	Requirements pq.StringArray `json:"requirements" db:"requirements"`
	CreatedBy    *string        `json:"created_by,omitempty" db:"created_by"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
