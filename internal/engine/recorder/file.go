package recorder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
	applog "github.com/darkkaiser/pricesearch/pkg/log"
)

const defaultFilePath = "data/recorder/failures.jsonl"

// fileRecord is one line of the JSONL failure log.
type fileRecord struct {
	Failure
	RecordedAt time.Time `json:"recorded_at"`
}

// FileRecorder appends each failure as one JSON line to a flat file,
// fsyncing after every write so a crash loses at most the write in
// flight, never a previously-recorded entry -- the same durability
// trade-off the cache's file adapter makes for its own writes, just
// applied to an append-only log instead of one-file-per-key storage.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

var _ Recorder = (*FileRecorder)(nil)

// NewFileRecorder creates the directory of the failure log at path; the
// log file itself is opened, and created if necessary, on each
// RecordFailure. An empty path uses the reference default location.
func NewFileRecorder(path string) (*FileRecorder, error) {
	if path == "" {
		path = defaultFilePath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "recorder: failed to create log directory")
	}

	return &FileRecorder{path: path}, nil
}

// RecordFailure appends f to the log. Write failures are logged, not
// returned -- per the Recorder contract, callers never observe an error
// from this method.
func (r *FileRecorder) RecordFailure(_ context.Context, f Failure) {
	line, err := json.Marshal(fileRecord{Failure: f, RecordedAt: time.Now()})
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{"error": err.Error()}).Error("failure record marshal failed")
		return
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{"path": r.path, "error": err.Error()}).Error("failure log open failed")
		return
	}
	defer file.Close()

	if _, err := file.Write(line); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{"path": r.path, "error": err.Error()}).Error("failure log write failed")
		return
	}
	_ = file.Sync()
}
