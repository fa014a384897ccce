package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/quality-ledger/quality-ledger/internal/config"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

func sampleRecord() *models.LedgerRecord {
	return &models.LedgerRecord{
		Seq:         1,
		RecordType:  models.LedgerRecordAuditInitiate,
		RecordID:    "7",
		Digest:      "abc",
		ChainDigest: "def",
		Payload:     json.RawMessage(`{"id":7}`),
	}
}

// ---------------------------------------------------------------------------
// FileShipper
// ---------------------------------------------------------------------------

func TestFileShipper_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	fs, err := NewFileShipper(path)
	if err != nil {
		t.Fatalf("NewFileShipper: %v", err)
	}
	defer fs.Close()

	if err := fs.Ship(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if err := fs.Ship(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Ship: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec models.LedgerRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		if rec.RecordType != models.LedgerRecordAuditInitiate {
			t.Errorf("record_type = %s", rec.RecordType)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2", lines)
	}
}

func TestFileShipper_BadPath(t *testing.T) {
	if _, err := NewFileShipper("/nonexistent-dir/ledger.jsonl"); err == nil {
		t.Error("expected error for unwritable path")
	}
}

// ---------------------------------------------------------------------------
// WebhookShipper
// ---------------------------------------------------------------------------

func TestWebhookShipper_PostsRecord(t *testing.T) {
	var got models.LedgerRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %s", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing custom header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ws := NewWebhookShipper(&config.LedgerWebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
	})

	if err := ws.Ship(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if got.RecordID != "7" {
		t.Errorf("record_id = %s, want 7", got.RecordID)
	}
}

func TestWebhookShipper_RejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ws := NewWebhookShipper(&config.LedgerWebhookConfig{URL: srv.URL})
	if err := ws.Ship(context.Background(), sampleRecord()); err == nil {
		t.Error("expected error on 503")
	}
}

// ---------------------------------------------------------------------------
// MultiShipper
// ---------------------------------------------------------------------------

type stubShipper struct {
	calls int
	err   error
}

func (s *stubShipper) Ship(ctx context.Context, rec *models.LedgerRecord) error {
	s.calls++
	return s.err
}

func (s *stubShipper) Close() error { return nil }

func TestMultiShipper_AllMustConfirm(t *testing.T) {
	ok := &stubShipper{}
	failing := &stubShipper{err: errors.New("down")}
	ms := &MultiShipper{shippers: []Shipper{ok, failing}}

	if err := ms.Ship(context.Background(), sampleRecord()); err == nil {
		t.Error("expected failure when any destination refuses")
	}
	if ok.calls != 1 {
		t.Errorf("healthy destination calls = %d, want 1", ok.calls)
	}
}

func TestMultiShipper_NoDestinations(t *testing.T) {
	ms, err := NewMultiShipper(&config.LedgerConfig{})
	if err != nil {
		t.Fatalf("NewMultiShipper: %v", err)
	}
	if err := ms.Ship(context.Background(), sampleRecord()); err != nil {
		t.Errorf("no-op shipper should confirm, got %v", err)
	}
}

func TestNewMultiShipper_FileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ms, err := NewMultiShipper(&config.LedgerConfig{
		File: config.LedgerFileConfig{Enabled: true, Path: path},
	})
	if err != nil {
		t.Fatalf("NewMultiShipper: %v", err)
	}
	defer ms.Close()

	if err := ms.Ship(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("ledger file not written: %v", err)
	}
}
