package audits

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quality-ledger/quality-ledger/internal/config"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/ledger"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
	"github.com/quality-ledger/quality-ledger/pkg/checksum"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const approverWallet = "0xAbCd000000000000000000000000000000000002"

var errUnique = &pq.Error{Code: "23505"}
var errFK = &pq.Error{Code: "23503"}

var auditCols = []string{
	"id", "organization_id", "check_id", "auditor", "audit_type", "scope", "status",
	"initiated_at", "expected_completion", "completed_at", "findings",
	"compliance_score", "recommendations", "approvals_received", "approvals_required",
}

var dashboardCols = []string{
	"organizations", "standards", "checks", "audits_initiated",
	"audits_active", "audits_completed", "unread_alerts", "ledger_records",
}

type stubShipper struct{}

func (stubShipper) Ship(ctx context.Context, rec *models.LedgerRecord) error { return nil }
func (stubShipper) Close() error                                             { return nil }

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	db := sqlx.NewDb(rawDB, "sqlmock")
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orgs := repositories.NewOrganizationRepository(db)
	standards := repositories.NewStandardRepository(db)
	checks := repositories.NewCheckRepository(db)
	auditsRepo := repositories.NewAuditRepository(db)
	alerts := repositories.NewAlertRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	stats := repositories.NewStatsRepository(db)

	ledgerCfg := &config.LedgerConfig{
		DigestAlgorithm:  checksum.AlgorithmSHA256,
		MaxAnchorRetries: 0,
		RetryBackoff:     time.Millisecond,
	}
	anchorer := ledger.NewAnchorer(ledgerRepo, stubShipper{}, ledgerCfg, logger)

	policy := &config.WorkflowConfig{
		DefaultQuorum:      1,
		MultiPartyQuorum:   2,
		MultiPartyTypes:    []string{models.AuditTypeExternal},
		CompliantThreshold: 85,
		WarningThreshold:   60,
	}
	engine := workflow.NewEngine(db, orgs, standards, checks, auditsRepo, alerts, anchorer, policy, logger)

	return NewHandler(engine, auditsRepo, stats, logger), mock
}

func testRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.POST("/audits", h.Initiate)
	router.GET("/audits", h.List)
	router.GET("/audits/:id", h.Get)
	router.GET("/audits/:id/approvals", h.Approvals)
	router.POST("/audits/:id/approve", h.Approve)
	router.POST("/audits/:id/complete", h.Complete)
	router.GET("/stats/compliance", h.Compliance)
	router.GET("/stats/monthly", h.Monthly)
	router.GET("/stats/dashboard", h.Dashboard)
	return router
}

func TestGetAudit_InvalidID(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/not-a-number", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetAudit_NotFound(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT.*FROM audits").
		WillReturnRows(sqlmock.NewRows(auditCols))

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/99", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetAudit_Success(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT.*FROM audits").
		WillReturnRows(sqlmock.NewRows(auditCols).AddRow(
			int64(7), "org-1", "check-1", approverWallet, models.AuditTypeInternal,
			"line 3", models.AuditStatusInitiated, time.Now(), time.Now().AddDate(0, 0, 14),
			nil, []byte("{}"), nil, []byte("{}"), 0, 1,
		))

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/7", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var audit models.Audit
	if err := json.Unmarshal(w.Body.Bytes(), &audit); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if audit.ID != 7 {
		t.Errorf("id = %d, want 7", audit.ID)
	}
}

func TestListAudits_UnknownStatus(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits?status=paused", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListAudits_BadFromTimestamp(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits?from=yesterday", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestApprove_MissingApprover(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/audits/7/approve", strings.NewReader(`{}`))
	testRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestApprove_Duplicate(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_approvals").WillReturnError(errUnique)
	mock.ExpectRollback()

	body := `{"approver_id":"` + approverWallet + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/audits/7/approve", strings.NewReader(body))
	testRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestApprove_UnknownAudit(t *testing.T) {
	h, mock := newTestHandler(t)

	// Approving an audit that does not exist trips the approvals foreign key;
	// the follow-up read finds nothing and the client gets a 404.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_approvals").WillReturnError(errFK)
	mock.ExpectQuery("SELECT.*FROM audits WHERE id").
		WillReturnRows(sqlmock.NewRows(auditCols))
	mock.ExpectRollback()

	body := `{"approver_id":"` + approverWallet + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/audits/999/approve", strings.NewReader(body))
	testRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestComplete_ScoreOutOfRange(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"compliance_score":140}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/audits/7/complete", strings.NewReader(body))
	testRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMonthly_InvalidMonths(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats/monthly?months=zero", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCompliance_Success(t *testing.T) {
	h, mock := newTestHandler(t)

	orgStatCols := []string{
		"organization_id", "organization_name", "completed_audits", "average_score",
		"compliant_count", "warning_count", "critical_count", "band",
	}
	mock.ExpectQuery("SELECT.*FROM organizations o.*LEFT JOIN audits").
		WithArgs(85.0, 60.0, "org-1").
		WillReturnRows(sqlmock.NewRows(orgStatCols).
			AddRow("org-1", "Acme", int64(4), 91.2, int64(3), int64(1), int64(0), "compliant"))
	mock.ExpectQuery("SELECT.*audit_type.*FROM audits").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"audit_type", "completed_audits", "average_score"}).
			AddRow(models.AuditTypeInternal, int64(4), 91.2))

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats/compliance?organization_id=org-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"organizations"`) || !strings.Contains(body, `"by_category"`) {
		t.Errorf("body = %s, want organizations and by_category sections", body)
	}
}

func TestDashboard_Success(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(dashboardCols).
			AddRow(int64(4), int64(2), int64(6), int64(1), int64(3), int64(9), int64(2), int64(21)))

	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats/dashboard", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var counts repositories.DashboardCounts
	if err := json.Unmarshal(w.Body.Bytes(), &counts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if counts.AuditsCompleted != 9 {
		t.Errorf("audits_completed = %d, want 9", counts.AuditsCompleted)
	}
}
