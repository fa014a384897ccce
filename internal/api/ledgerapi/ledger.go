// Package ledgerapi implements read-only handlers over the tamper-evidence
// ledger: record listing and full chain verification. The ledger has no write
// endpoints; rows are only ever appended by the workflow engine.
package ledgerapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/api/respond"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/ledger"
)

// Handler handles ledger API requests
type Handler struct {
	repo     *repositories.LedgerRepository
	verifier *ledger.Verifier
	logger   *slog.Logger
}

// NewHandler creates a ledger handler.
func NewHandler(repo *repositories.LedgerRepository, verifier *ledger.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		verifier: verifier,
		logger:   logger,
	}
}

// Records returns ledger records in append order, filtered by the record_type
// and record_id query parameters. The limit parameter defaults to 100 and is
// capped at 500.
func (h *Handler) Records(c *gin.Context) {
	filters := repositories.LedgerFilters{Limit: 100}

	if v := c.Query("record_type"); v != "" {
		filters.RecordType = &v
	}
	if v := c.Query("record_id"); v != "" {
		filters.RecordID = &v
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respond.BadRequest(c, "invalid limit parameter")
			return
		}
		filters.Limit = n
	}
	if filters.Limit > 500 {
		filters.Limit = 500
	}

	records, err := h.repo.List(c.Request.Context(), filters)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Verify walks the full chain and recomputes every digest. A broken chain is
// reported in the response body, not as an HTTP error: the verification itself
// succeeded, the ledger is what failed.
func (h *Handler) Verify(c *gin.Context) {
	result, err := h.verifier.Verify(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	if !result.Valid {
		h.logger.Error("ledger verification failed",
			"broken_seq", result.BrokenSeq, "reason", result.Reason)
	}
	c.JSON(http.StatusOK, result)
}
