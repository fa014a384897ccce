// ledger_repository.go implements LedgerRepository for the append-only hash chain.
// Rows are only ever inserted; the chain head is the row with the highest seq.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// LedgerRepository handles database operations for ledger records
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `seq, record_type, record_id, digest, prev_chain_digest, chain_digest, payload, created_at`

// chainLockKey is the advisory lock key serializing appends to the chain.
const chainLockKey = 874302817

// AppendTx inserts rec inside the supplied transaction and fills in the assigned
// sequence number and timestamp. The caller must hold HeadTx's lock for the same
// transaction so concurrent appends cannot interleave chain digests.
func (r *LedgerRepository) AppendTx(ctx context.Context, tx *sqlx.Tx, rec *models.LedgerRecord) error {
	query := `
		INSERT INTO ledger_records (record_type, record_id, digest, prev_chain_digest, chain_digest, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq, created_at
	`

	err := tx.QueryRowContext(ctx, query,
		rec.RecordType,
		rec.RecordID,
		rec.Digest,
		rec.PrevChainDigest,
		rec.ChainDigest,
		rec.Payload,
	).Scan(&rec.Seq, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}

	return nil
}

// HeadTx returns the current chain head inside the supplied transaction, holding
// the chain's advisory lock until commit so concurrent appenders queue up. A row
// lock on the max-seq row is not enough: under READ COMMITTED a writer that waited
// on it re-reads with a snapshot that predates the other writer's append and links
// to a stale head, and an empty ledger has no row to lock at all. Returns
// (nil, nil) when the ledger is empty.
func (r *LedgerRepository) HeadTx(ctx context.Context, tx *sqlx.Tx) (*models.LedgerRecord, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, chainLockKey); err != nil {
		return nil, fmt.Errorf("failed to lock ledger chain: %w", err)
	}

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_records
		ORDER BY seq DESC
		LIMIT 1
	`

	rec := &models.LedgerRecord{}
	if err := tx.GetContext(ctx, rec, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger head: %w", err)
	}

	return rec, nil
}

// LedgerFilters contains filters for querying ledger records
type LedgerFilters struct {
	RecordType *string
	RecordID   *string
	Limit      int
}

// List retrieves ledger records matching the filters in append order.
func (r *LedgerRepository) List(ctx context.Context, filters LedgerFilters) ([]*models.LedgerRecord, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_records WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.RecordType != nil {
		query += fmt.Sprintf(` AND record_type = $%d`, paramIndex)
		args = append(args, *filters.RecordType)
		paramIndex++
	}
	if filters.RecordID != nil {
		query += fmt.Sprintf(` AND record_id = $%d`, paramIndex)
		args = append(args, *filters.RecordID)
		paramIndex++
	}

	query += ` ORDER BY seq ASC`

	if filters.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramIndex)
		args = append(args, filters.Limit)
	}

	records := []*models.LedgerRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}

	return records, nil
}

// Walk streams the whole chain in append order through fn, fetching in pages so
// verification does not hold the entire ledger in memory. fn returning an error
// stops the walk.
func (r *LedgerRepository) Walk(ctx context.Context, fn func(*models.LedgerRecord) error) error {
	const pageSize = 500

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_records
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2
	`

	var after int64
	for {
		page := []*models.LedgerRecord{}
		if err := r.db.SelectContext(ctx, &page, query, after, pageSize); err != nil {
			return fmt.Errorf("failed to walk ledger: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		for _, rec := range page {
			if err := fn(rec); err != nil {
				return err
			}
			after = rec.Seq
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

// Count returns the total number of ledger records.
func (r *LedgerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ledger_records`); err != nil {
		return 0, fmt.Errorf("failed to count ledger records: %w", err)
	}
	return count, nil
}
