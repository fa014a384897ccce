// anchor.go computes and appends chain records. The Anchorer is handed an open
// transaction by the workflow engine; it takes the chain lock, reads the head,
// links the new record to it, appends, then pushes the record to the destinations
// with bounded retries. Only after every destination confirms does control
// return to the engine to commit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quality-ledger/quality-ledger/internal/config"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/telemetry"
	"github.com/quality-ledger/quality-ledger/pkg/checksum"
)

// ErrUnavailable indicates the external ledger destinations refused the record
// after all retries. The enclosing transaction must roll back.
var ErrUnavailable = errors.New("ledger destination unavailable")

// Anchorer writes hash-chained records for mutating operations
type Anchorer struct {
	repo       *repositories.LedgerRepository
	shipper    Shipper
	algorithm  string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewAnchorer creates an anchorer from ledger configuration.
func NewAnchorer(repo *repositories.LedgerRepository, shipper Shipper, cfg *config.LedgerConfig, logger *slog.Logger) *Anchorer {
	return &Anchorer{
		repo:       repo,
		shipper:    shipper,
		algorithm:  cfg.DigestAlgorithm,
		maxRetries: cfg.MaxAnchorRetries,
		backoff:    cfg.RetryBackoff,
		logger:     logger,
	}
}

// AnchorTx appends a chain record for (recordType, recordID, payload) inside tx
// and confirms external delivery. Returns ErrUnavailable when the destinations
// stay down through all retries; the caller must then roll back tx.
func (a *Anchorer) AnchorTx(ctx context.Context, tx *sqlx.Tx, recordType, recordID string, payload interface{}) (*models.LedgerRecord, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return nil, err
	}

	digest, err := checksum.Sum(a.algorithm, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to digest payload: %w", err)
	}

	// HeadTx holds the chain lock until the transaction ends, so no two
	// records can claim the same predecessor.
	head, err := a.repo.HeadTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	prev := ""
	if head != nil {
		prev = head.ChainDigest
	}

	chainDigest, err := checksum.Sum(a.algorithm, []byte(prev+digest))
	if err != nil {
		return nil, fmt.Errorf("failed to compute chain digest: %w", err)
	}

	rec := &models.LedgerRecord{
		RecordType:      recordType,
		RecordID:        recordID,
		Digest:          digest,
		PrevChainDigest: prev,
		ChainDigest:     chainDigest,
		Payload:         canonical,
	}
	if err := a.repo.AppendTx(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err := a.ship(ctx, rec); err != nil {
		telemetry.LedgerAnchorsTotal.WithLabelValues("unavailable").Inc()
		a.logger.Error("ledger destinations unavailable, rejecting mutation",
			"record_type", recordType,
			"record_id", recordID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	telemetry.LedgerAnchorsTotal.WithLabelValues("anchored").Inc()
	return rec, nil
}

// ship pushes the record to the destinations with bounded retries.
func (a *Anchorer) ship(ctx context.Context, rec *models.LedgerRecord) error {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.backoff):
			}
			a.logger.Warn("retrying ledger shipment",
				"record_type", rec.RecordType,
				"attempt", attempt)
		}

		if lastErr = a.shipper.Ship(ctx, rec); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
