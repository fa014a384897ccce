// Package workflow implements the audit lifecycle engine: entity registration,
// audit initiation, approval quorum tracking, completion, and the derived alerts
// that fall out of those transitions. Every mutation runs in one database
// transaction together with its ledger anchor, so a rejected anchor rolls the
// whole mutation back.
package workflow

import (
	"errors"

	"github.com/quality-ledger/quality-ledger/internal/ledger"
)

// Sentinel errors forming the engine's caller-facing taxonomy. Handlers map
// these onto HTTP statuses; everything else is an internal error.
var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation indicates the input failed a structural or referential check.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyCompleted indicates the audit is in its terminal state.
	ErrAlreadyCompleted = errors.New("audit already completed")

	// ErrQuorumReached indicates the approval quorum is already satisfied and
	// further approvals are rejected.
	ErrQuorumReached = errors.New("approval quorum already satisfied")

	// ErrInsufficientApprovals indicates completion was attempted before the
	// quorum was met.
	ErrInsufficientApprovals = errors.New("approval quorum not met")

	// ErrScoreOutOfRange indicates a compliance score outside [0, 100].
	ErrScoreOutOfRange = errors.New("compliance score out of range")

	// ErrLedgerUnavailable indicates the external ledger destinations refused
	// the anchor after all retries; the mutation was rolled back.
	ErrLedgerUnavailable = ledger.ErrUnavailable
)
