// Package respond maps workflow and repository errors onto HTTP responses so
// every handler package reports failures the same way.
package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// Error writes the HTTP response for err. Sentinel errors from the workflow
// engine and repositories map to their client-facing statuses; anything else is
// treated as an internal error and logged rather than leaked to the caller.
func Error(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrValidation), errors.Is(err, workflow.ErrScoreOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrDuplicate),
		errors.Is(err, repositories.ErrDuplicateApproval),
		errors.Is(err, workflow.ErrAlreadyCompleted),
		errors.Is(err, workflow.ErrQuorumReached),
		errors.Is(err, workflow.ErrInsufficientApprovals):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrLedgerUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable, mutation rejected"})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// BadRequest writes a 400 with the supplied message. Used for malformed request
// bodies and path parameters, where there is no sentinel error to map.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// NotFound writes a 404 with the supplied message.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}
