package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadDefaults(t)

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "quality_ledger" {
		t.Errorf("database.name = %s, want quality_ledger", cfg.Database.Name)
	}
	if cfg.Ledger.DigestAlgorithm != "sha256" {
		t.Errorf("ledger.digest_algorithm = %s, want sha256", cfg.Ledger.DigestAlgorithm)
	}
	if cfg.Workflow.DefaultQuorum != 1 {
		t.Errorf("workflow.default_quorum = %d, want 1", cfg.Workflow.DefaultQuorum)
	}
	if cfg.Workflow.MultiPartyQuorum != 2 {
		t.Errorf("workflow.multi_party_quorum = %d, want 2", cfg.Workflow.MultiPartyQuorum)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("QL_DATABASE_HOST", "db.internal")
	t.Setenv("QL_SERVER_PORT", "9999")

	cfg := loadDefaults(t)

	if cfg.Database.Host != "db.internal" {
		t.Errorf("database.host = %s, want db.internal", cfg.Database.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
}

func TestLoad_PasswordExpansion(t *testing.T) {
	t.Setenv("DB_SECRET", "s3cret")
	t.Setenv("QL_DATABASE_PASSWORD", "${DB_SECRET}")

	cfg := loadDefaults(t)

	if cfg.Database.Password != "s3cret" {
		t.Errorf("database.password = %q, want expanded secret", cfg.Database.Password)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("server:\n  port: 8181\nworkflow:\n  default_quorum: 2\n  multi_party_quorum: 3\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) failed: %v", path, err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("server.port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Workflow.DefaultQuorum != 2 {
		t.Errorf("workflow.default_quorum = %d, want 2", cfg.Workflow.DefaultQuorum)
	}
}

func TestValidate_BadDigestAlgorithm(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Ledger.DigestAlgorithm = "crc32"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unsupported digest algorithm")
	}
}

func TestValidate_WebhookRequiresURL(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Ledger.Webhook.Enabled = true
	cfg.Ledger.Webhook.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for enabled webhook without URL")
	}
}

func TestValidate_QuorumBounds(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Workflow.DefaultQuorum = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero default quorum")
	}

	cfg = loadDefaults(t)
	cfg.Workflow.MultiPartyQuorum = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for multi-party quorum below default")
	}
}

func TestQuorumFor(t *testing.T) {
	cfg := loadDefaults(t)

	if got := cfg.Workflow.QuorumFor(models.AuditTypeSecurity); got != 2 {
		t.Errorf("QuorumFor(Security) = %d, want 2", got)
	}
	if got := cfg.Workflow.QuorumFor(models.AuditTypeInternal); got != 1 {
		t.Errorf("QuorumFor(Internal) = %d, want 1", got)
	}
}

func TestGetDSN(t *testing.T) {
	dc := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=n sslmode=disable"
	if got := dc.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
