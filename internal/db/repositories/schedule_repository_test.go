package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

var schedCols = []string{
	"id", "name", "organization_id", "check_id", "audit_type", "scheduled_date",
	"recurrence", "is_active", "last_run_at", "created_at",
}

func sampleSchedRow() *sqlmock.Rows {
	return sqlmock.NewRows(schedCols).AddRow(
		"sched-1", "monthly line audit", "org-1", "check-1", models.AuditTypeInternal,
		time.Now(), "monthly", true, nil, time.Now(),
	)
}

func TestCreateSchedule_Success(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("INSERT INTO scheduled_audits").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "created_at"}).
			AddRow("sched-new", true, time.Now()))

	monthly := models.FrequencyMonthly
	sched := &models.ScheduledAudit{
		Name:           "monthly line audit",
		OrganizationID: "org-1",
		CheckID:        "check-1",
		AuditType:      models.AuditTypeInternal,
		ScheduledDate:  time.Now().AddDate(0, 1, 0),
		Recurrence:     &monthly,
	}
	if err := repo.Create(context.Background(), sched); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.ID != "sched-new" {
		t.Errorf("ID = %s, want sched-new", sched.ID)
	}
}

func TestCreateSchedule_DuplicateName(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("INSERT INTO scheduled_audits").
		WillReturnError(errUnique)

	sched := &models.ScheduledAudit{Name: "monthly line audit"}
	if err := repo.Create(context.Background(), sched); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestDueSchedules_Success(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewScheduleRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT.*FROM scheduled_audits.*WHERE is_active = TRUE AND scheduled_date <=").
		WithArgs(now).
		WillReturnRows(sampleSchedRow())

	due, err := repo.Due(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(due) != 1 {
		t.Errorf("len(due) = %d, want 1", len(due))
	}
}

func TestMarkRun_Recurring_Advances(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewScheduleRepository(db)

	monthly := models.FrequencyMonthly
	ranAt := time.Now()
	sched := &models.ScheduledAudit{
		ID:            "sched-1",
		ScheduledDate: ranAt,
		Recurrence:    &monthly,
	}

	mock.ExpectExec("UPDATE scheduled_audits SET last_run_at.*scheduled_date").
		WithArgs("sched-1", ranAt, sched.NextOccurrence()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkRun(context.Background(), sched, ranAt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkRun_OneShot_Deactivates(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewScheduleRepository(db)

	ranAt := time.Now()
	sched := &models.ScheduledAudit{ID: "sched-1", ScheduledDate: ranAt}

	mock.ExpectExec("UPDATE scheduled_audits SET last_run_at.*is_active = FALSE").
		WithArgs("sched-1", ranAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkRun(context.Background(), sched, ranAt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetScheduleActive_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("UPDATE scheduled_audits.*SET is_active").
		WillReturnRows(sqlmock.NewRows(schedCols))

	sched, err := repo.SetActive(context.Background(), "missing", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched != nil {
		t.Error("expected nil, got non-nil")
	}
}
