// shipper.go routes confirmed ledger records to external destinations. The
// external copy is what makes the chain tamper-evident against a hostile
// database administrator: a record altered in PostgreSQL no longer matches the
// copy held outside it. Destinations must confirm synchronously because the
// anchoring transaction only commits once every destination has the record.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/quality-ledger/quality-ledger/internal/config"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// Shipper delivers a ledger record to an external destination
type Shipper interface {
	// Ship sends the record and returns only once the destination has it
	Ship(ctx context.Context, rec *models.LedgerRecord) error
	// Close cleans up any resources
	Close() error
}

// MultiShipper fans a record out to every configured destination. Unlike a
// log pipeline, partial delivery is failure: anchoring requires all
// destinations to confirm.
type MultiShipper struct {
	shippers []Shipper
	names    []string
	mu       sync.RWMutex
}

// NewMultiShipper builds the destination set from configuration. With no
// destinations enabled the shipper is a no-op and the database chain is the
// only tamper evidence.
func NewMultiShipper(cfg *config.LedgerConfig) (*MultiShipper, error) {
	ms := &MultiShipper{shippers: make([]Shipper, 0)}

	if cfg.File.Enabled {
		fs, err := NewFileShipper(cfg.File.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file shipper: %w", err)
		}
		ms.shippers = append(ms.shippers, fs)
		ms.names = append(ms.names, "file")
	}

	if cfg.Webhook.Enabled {
		ms.shippers = append(ms.shippers, NewWebhookShipper(&cfg.Webhook))
		ms.names = append(ms.names, "webhook")
	}

	return ms, nil
}

// Destinations reports the configured destination kinds, for status reporting.
func (ms *MultiShipper) Destinations() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return append([]string(nil), ms.names...)
}

// Ship delivers to every destination and fails on the first refusal.
func (ms *MultiShipper) Ship(ctx context.Context, rec *models.LedgerRecord) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, s := range ms.shippers {
		if err := s.Ship(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all destinations
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var lastErr error
	for _, s := range ms.shippers {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// WebhookShipper posts records to an external immutable-store gateway
type WebhookShipper struct {
	cfg    *config.LedgerWebhookConfig
	client *http.Client
}

// NewWebhookShipper creates a new webhook shipper
func NewWebhookShipper(cfg *config.LedgerWebhookConfig) *WebhookShipper {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WebhookShipper{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Ship posts the record as JSON and treats any non-2xx/3xx status as refusal.
func (ws *WebhookShipper) Ship(ctx context.Context, rec *models.LedgerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to ship ledger record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ledger destination returned status %d", resp.StatusCode)
	}

	return nil
}

// Close is a no-op for webhooks
func (ws *WebhookShipper) Close() error {
	return nil
}

// FileShipper appends records to a local append-only file, one JSON object per
// line. The file is opened append-only and never rotated; truncating it is
// exactly the tampering the chain walk detects.
type FileShipper struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileShipper creates a new file shipper
func NewFileShipper(path string) (*FileShipper, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}

	return &FileShipper{file: file}, nil
}

// Ship appends the record and fsyncs before confirming.
func (fs *FileShipper) Ship(ctx context.Context, rec *models.LedgerRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger record: %w", err)
	}

	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write ledger record: %w", err)
	}
	if err := fs.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}

	return nil
}

// Close closes the file
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
