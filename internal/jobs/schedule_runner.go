// Package jobs contains background workers that run alongside the HTTP server.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quality-ledger/quality-ledger/internal/config"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/safego"
	"github.com/quality-ledger/quality-ledger/internal/telemetry"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// systemAuditor is the identity the runner initiates audits under. Scheduled
// audits have no human initiator; the zero wallet marks them as system-opened.
const systemAuditor = "0x0000000000000000000000000000000000000000"

// scheduledCompletionWindow is how long a runner-initiated audit gets before its
// expected completion date.
const scheduledCompletionWindow = 30 * 24 * time.Hour

// ScheduleRunner periodically scans for due audit bookings and initiates a real
// audit for each one through the workflow engine, so scheduled audits are
// anchored and quorum-tracked exactly like manually initiated ones.
type ScheduleRunner struct {
	schedules *repositories.ScheduleRepository
	engine    *workflow.Engine
	interval  time.Duration
	logger    *slog.Logger
	stop      chan struct{}
	done      chan struct{}
}

// NewScheduleRunner creates a schedule runner from the scheduler configuration.
func NewScheduleRunner(
	schedules *repositories.ScheduleRepository,
	engine *workflow.Engine,
	cfg *config.SchedulerConfig,
	logger *slog.Logger,
) *ScheduleRunner {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ScheduleRunner{
		schedules: schedules,
		engine:    engine,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the runner loop in a background goroutine. The first scan runs
// immediately so schedules that came due while the server was down are picked up
// at startup rather than one interval later.
func (r *ScheduleRunner) Start(ctx context.Context) {
	safego.Go(func() {
		defer close(r.done)

		r.logger.Info("schedule runner started", "interval", r.interval.String())
		r.RunDue(ctx, time.Now())

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				r.RunDue(ctx, now)
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	})
}

// Stop signals the runner to exit and waits for the loop to finish.
func (r *ScheduleRunner) Stop() {
	close(r.stop)
	<-r.done
	r.logger.Info("schedule runner stopped")
}

// RunDue initiates an audit for every booking due at now. A booking whose
// organization or check has become invalid is deactivated so it stops being
// retried every tick; transient failures (including ledger unavailability) leave
// the booking due for the next scan.
func (r *ScheduleRunner) RunDue(ctx context.Context, now time.Time) {
	due, err := r.schedules.Due(ctx, now)
	if err != nil {
		r.logger.Error("failed to scan due schedules", "error", err)
		return
	}

	for _, sched := range due {
		if err := r.runOne(ctx, sched, now); err != nil {
			telemetry.ScheduledAuditRunsTotal.WithLabelValues("failed").Inc()
			r.logger.Error("scheduled audit initiation failed",
				"schedule_id", sched.ID, "name", sched.Name, "error", err)

			if errors.Is(err, workflow.ErrValidation) || errors.Is(err, workflow.ErrNotFound) {
				if _, deactErr := r.schedules.SetActive(ctx, sched.ID, false); deactErr != nil {
					r.logger.Error("failed to deactivate broken schedule",
						"schedule_id", sched.ID, "error", deactErr)
				}
			}
			continue
		}
		telemetry.ScheduledAuditRunsTotal.WithLabelValues("ok").Inc()
	}
}

func (r *ScheduleRunner) runOne(ctx context.Context, sched *models.ScheduledAudit, now time.Time) error {
	audit, err := r.engine.InitiateAudit(ctx, workflow.InitiateAuditInput{
		OrganizationID:     sched.OrganizationID,
		CheckID:            sched.CheckID,
		Auditor:            systemAuditor,
		AuditType:          sched.AuditType,
		Scope:              "Scheduled: " + sched.Name,
		ExpectedCompletion: now.Add(scheduledCompletionWindow),
	})
	if err != nil {
		return err
	}

	if err := r.schedules.MarkRun(ctx, sched, now); err != nil {
		// The audit exists but the booking still looks due. The next scan will
		// open a second audit, which reviewers can complete or ignore; failing
		// here keeps the error visible instead of silently dropping it.
		return err
	}

	r.logger.Info("scheduled audit initiated",
		"schedule_id", sched.ID,
		"name", sched.Name,
		"audit_id", audit.ID,
		"recurring", sched.Recurrence != nil)
	return nil
}
