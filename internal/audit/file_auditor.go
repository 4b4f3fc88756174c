package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pavestack/sheetmatch/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of an ingest outcome.
type fileEntry struct {
	Timestamp   string  `json:"ts"`
	RunID       string  `json:"run_id"`
	Pipeline    string  `json:"pipeline,omitempty"`
	FilePath    string  `json:"filepath"`
	SheetName   string  `json:"sheet"`
	Schema      string  `json:"schema"`
	Destination string  `json:"destination,omitempty"`
	Outcome     string  `json:"outcome"`
	Rows        int     `json:"rows"`
	DurationMS  int64   `json:"duration_ms"`
	Error       *string `json:"error"`
}

// FileAuditor writes ingest outcomes as NDJSON (one JSON object per line) to a
// file, so a run can be reconciled sheet by sheet afterwards.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:   a.now().UTC().Format(time.RFC3339),
		RunID:       entry.RunID,
		Pipeline:    entry.Pipeline,
		FilePath:    entry.FilePath,
		SheetName:   entry.SheetName,
		Schema:      entry.Schema,
		Destination: entry.Destination,
		Outcome:     entry.Outcome,
		Rows:        entry.Rows,
		DurationMS:  entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; an audit failure must not fail the run
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.AuditEntry) {}
func (NoopAuditor) Close() error                            { return nil }
