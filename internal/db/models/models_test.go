package models

import (
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Audit.QuorumMet / IsCompleted
// ---------------------------------------------------------------------------

func TestAudit_QuorumMet_Below(t *testing.T) {
	a := &Audit{ApprovalsReceived: 1, ApprovalsRequired: 2}
	if a.QuorumMet() {
		t.Error("QuorumMet() should be false below the required count")
	}
}

func TestAudit_QuorumMet_Exact(t *testing.T) {
	a := &Audit{ApprovalsReceived: 2, ApprovalsRequired: 2}
	if !a.QuorumMet() {
		t.Error("QuorumMet() should be true at the required count")
	}
}

func TestAudit_IsCompleted(t *testing.T) {
	a := &Audit{Status: AuditStatusCompleted}
	if !a.IsCompleted() {
		t.Error("IsCompleted() should be true for completed status")
	}
	a.Status = AuditStatusInProgress
	if a.IsCompleted() {
		t.Error("IsCompleted() should be false for in_progress status")
	}
}

func TestValidAuditType(t *testing.T) {
	for _, typ := range []string{
		AuditTypeInternal, AuditTypeExternal, AuditTypeCompliance, AuditTypeSecurity,
		AuditTypeProcess, AuditTypeFinancial, AuditTypeEnvironmental, AuditTypeSupplyChain,
	} {
		if !ValidAuditType(typ) {
			t.Errorf("ValidAuditType(%q) = false, want true", typ)
		}
	}
	if ValidAuditType("Tax") {
		t.Error("ValidAuditType should reject unknown types")
	}
}

// ---------------------------------------------------------------------------
// Wallet address validation
// ---------------------------------------------------------------------------

func TestValidWalletAddress(t *testing.T) {
	valid := []string{
		"0x1234567890123456789012345678901234567890",
		"0xabcdefABCDEF0123456789abcdefABCDEF012345",
	}
	for _, addr := range valid {
		if !ValidWalletAddress(addr) {
			t.Errorf("ValidWalletAddress(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"",
		"1234567890123456789012345678901234567890",     // missing 0x
		"0x123456789012345678901234567890123456789",    // 39 chars
		"0x12345678901234567890123456789012345678901",  // 41 chars
		"0xzz34567890123456789012345678901234567890",   // non-hex
		"0X1234567890123456789012345678901234567890",   // uppercase prefix
	}
	for _, addr := range invalid {
		if ValidWalletAddress(addr) {
			t.Errorf("ValidWalletAddress(%q) = true, want false", addr)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleQAManager, RoleQAStaff, RoleAuditor, RoleViewer} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%q) = false, want true", r)
		}
	}
	if ValidRole("Intern") {
		t.Error("ValidRole should reject unknown roles")
	}
}

// ---------------------------------------------------------------------------
// ScheduledAudit.NextOccurrence
// ---------------------------------------------------------------------------

func TestScheduledAudit_NextOccurrence_OneShot(t *testing.T) {
	s := &ScheduledAudit{ScheduledDate: time.Now()}
	if !s.NextOccurrence().IsZero() {
		t.Error("one-shot schedules have no next occurrence")
	}
}

func TestScheduledAudit_NextOccurrence_Recurring(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		recurrence string
		want       time.Time
	}{
		{FrequencyWeekly, base.AddDate(0, 0, 7)},
		{FrequencyMonthly, base.AddDate(0, 1, 0)},
		{FrequencyQuarterly, base.AddDate(0, 3, 0)},
		{FrequencyAnnually, base.AddDate(1, 0, 0)},
	}
	for _, tc := range cases {
		rec := tc.recurrence
		s := &ScheduledAudit{ScheduledDate: base, Recurrence: &rec}
		if got := s.NextOccurrence(); !got.Equal(tc.want) {
			t.Errorf("%s: NextOccurrence = %v, want %v", tc.recurrence, got, tc.want)
		}
	}
}

func TestValidFrequency(t *testing.T) {
	for _, f := range []string{FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually} {
		if !ValidFrequency(f) {
			t.Errorf("ValidFrequency(%q) = false, want true", f)
		}
	}
	if ValidFrequency("Daily") {
		t.Error("ValidFrequency should reject unsupported values")
	}
}
