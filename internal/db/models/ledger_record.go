// Package models - ledger_record.go defines the LedgerRecord model, the append-only
// tamper-evidence row written alongside every mutation. Each row carries the content
// digest of the mutated record plus a chain digest linking it to the previous row, so
// any after-the-fact edit breaks verification of every subsequent row.
package models

import (
	"encoding/json"
	"time"
)

// Ledger record types, one per anchored mutation
const (
	LedgerRecordOrganization  = "organization.registered"
	LedgerRecordStandard      = "standard.created"
	LedgerRecordCheck         = "check.created"
	LedgerRecordAuditInitiate = "audit.initiated"
	LedgerRecordAuditApprove  = "audit.approved"
	LedgerRecordAuditComplete = "audit.completed"
)

// LedgerRecord is one entry in the hash-chained audit trail
type LedgerRecord struct {
	Seq             int64           `json:"seq" db:"seq"` // Append order, BIGSERIAL
	RecordType      string          `json:"record_type" db:"record_type"`
	RecordID        string          `json:"record_id" db:"record_id"`
	Digest          string          `json:"digest" db:"digest"`                 // Content digest of the canonical payload
	PrevChainDigest string          `json:"prev_chain_digest" db:"prev_chain_digest"` // Empty for the genesis row
	ChainDigest     string          `json:"chain_digest" db:"chain_digest"`     // H(prev_chain_digest || digest)
	Payload         json.RawMessage `json:"payload" db:"payload"`               // Canonical serialization that was hashed
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
