// Package registry implements handlers for the definitional entities: organizations,
// quality standards, and quality checks. Mutations go through the workflow engine so
// each one is anchored to the ledger; reads hit the repositories directly.
package registry

import (
	"log/slog"

	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// Handler handles registry API requests
type Handler struct {
	engine    *workflow.Engine
	orgs      *repositories.OrganizationRepository
	standards *repositories.StandardRepository
	checks    *repositories.CheckRepository
	logger    *slog.Logger
}

// NewHandler creates a registry handler.
func NewHandler(
	engine *workflow.Engine,
	orgs *repositories.OrganizationRepository,
	standards *repositories.StandardRepository,
	checks *repositories.CheckRepository,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		engine:    engine,
		orgs:      orgs,
		standards: standards,
		checks:    checks,
		logger:    logger,
	}
}
