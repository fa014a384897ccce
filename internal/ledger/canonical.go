// Package ledger implements the tamper-evidence hash chain. Every mutating
// operation anchors a ledger record in the same database transaction as the
// domain write and confirms delivery to the configured external destinations
// before the transaction commits, so a mutation either lands everywhere or
// nowhere. Records chain through their digests: each row's chain digest covers
// the previous row's chain digest, which makes any retroactive edit detectable
// by re-walking the chain.
package ledger

import (
	"encoding/json"
	"fmt"
)

// Canonicalize returns the canonical serialization of v: compact JSON with
// object keys in sorted order. Two logically identical payloads always produce
// identical bytes, which is what makes digests comparable across time.
func Canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	// Round-trip through interface{} so maps re-marshal with sorted keys and
	// struct field order stops mattering.
	var norm interface{}
	if err := json.Unmarshal(raw, &norm); err != nil {
		return nil, fmt.Errorf("failed to normalize payload: %w", err)
	}

	out, err := json.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	return out, nil
}
