// Package models - organization.go defines the Organization model representing a company
// registered with the quality ledger, the root entity that audits and members hang off.
package models

import "time"

// Organization represents a registered company under quality management
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Sector    string    `json:"sector" db:"sector"` // Industry sector (manufacturing, pharma, food, ...)
	Address   string    `json:"address" db:"address"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
