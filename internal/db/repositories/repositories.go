// Package repositories implements the PostgreSQL persistence layer for the quality
// ledger. Each repository owns the SQL for one aggregate; write paths that must be
// atomic with ledger anchoring expose Tx variants so the workflow engine can compose
// them inside a single transaction.
package repositories

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by repositories when a database constraint rejects a
// write. The workflow engine maps these into its caller-facing taxonomy.
var (
	// ErrDuplicate indicates a uniqueness constraint violation (organization name,
	// member name/wallet within an org, schedule name, standard name+version).
	ErrDuplicate = errors.New("record already exists")

	// ErrDuplicateApproval indicates the same approver already signed off on the audit.
	ErrDuplicateApproval = errors.New("approver has already approved this audit")
)

// PostgreSQL error codes for constraint violations.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign-key error.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
