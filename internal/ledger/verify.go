// verify.go re-walks the stored chain and recomputes every digest.
package ledger

import (
	"context"
	"fmt"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/pkg/checksum"
)

// VerifyResult reports the outcome of a full chain walk
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Records   int64  `json:"records"`
	BrokenSeq int64  `json:"broken_seq,omitempty"` // First record that failed, 0 when valid
	Reason    string `json:"reason,omitempty"`
}

// Verifier re-validates the stored hash chain
type Verifier struct {
	repo      *repositories.LedgerRepository
	algorithm string
}

// NewVerifier creates a verifier using the configured digest algorithm.
func NewVerifier(repo *repositories.LedgerRepository, algorithm string) *Verifier {
	return &Verifier{repo: repo, algorithm: algorithm}
}

// errChainBroken stops the walk early once a mismatch is found.
var errChainBroken = fmt.Errorf("chain broken")

// Verify walks the whole chain in append order, recomputing each record's
// content digest from its stored payload and its chain digest from its
// predecessor. The first mismatch stops the walk; everything from that record
// onward is untrustworthy.
func (v *Verifier) Verify(ctx context.Context) (*VerifyResult, error) {
	result := &VerifyResult{Valid: true}
	prev := ""

	err := v.repo.Walk(ctx, func(rec *models.LedgerRecord) error {
		result.Records++

		digest, err := checksum.Sum(v.algorithm, rec.Payload)
		if err != nil {
			return err
		}
		if digest != rec.Digest {
			result.fail(rec.Seq, "payload does not match stored digest")
			return errChainBroken
		}

		if rec.PrevChainDigest != prev {
			result.fail(rec.Seq, "record does not link to previous chain digest")
			return errChainBroken
		}

		chainDigest, err := checksum.Sum(v.algorithm, []byte(prev+digest))
		if err != nil {
			return err
		}
		if chainDigest != rec.ChainDigest {
			result.fail(rec.Seq, "stored chain digest does not match recomputation")
			return errChainBroken
		}

		prev = rec.ChainDigest
		return nil
	})
	if err != nil && err != errChainBroken {
		return nil, err
	}

	return result, nil
}

func (r *VerifyResult) fail(seq int64, reason string) {
	r.Valid = false
	r.BrokenSeq = seq
	r.Reason = reason
}
