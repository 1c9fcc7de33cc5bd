package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/common-server/server-bootstrap/internal/bootstrap"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"

	contentType = "application/json"
)

// Report is the JSON record of one bootstrap run.
type Report struct {
	RunID      string                 `json:"runId"`
	Database   string                 `json:"database"`
	Status     string                 `json:"status"`
	Error      string                 `json:"error,omitempty"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
	DurationMs int64                  `json:"durationMs"`
	Summary    map[string]int         `json:"summary"`
	Steps      []bootstrap.StepResult `json:"steps"`
	Drift      []bootstrap.Drift      `json:"drift"`
}

// FromResult builds a report. res may be nil when the run never started
// (invalid plan, lock not acquired).
func FromResult(database string, res *bootstrap.Result, runErr error, drift []bootstrap.Drift) *Report {
	r := &Report{Database: database, Status: StatusSucceeded, Summary: map[string]int{}, Steps: []bootstrap.StepResult{}, Drift: drift}
	if r.Drift == nil {
		r.Drift = []bootstrap.Drift{}
	}
	if res != nil {
		r.RunID = res.RunID
		r.StartedAt = res.StartedAt
		r.FinishedAt = res.FinishedAt
		r.DurationMs = res.Duration().Milliseconds()
		r.Steps = append(r.Steps, res.Steps...)
		for _, s := range res.Steps {
			r.Summary[s.Kind+"/"+string(s.Outcome)]++
		}
	} else {
		r.StartedAt = time.Now().UTC()
		r.FinishedAt = r.StartedAt
	}
	if runErr != nil {
		r.Status = StatusFailed
		r.Error = runErr.Error()
	}
	return r
}

// Healthy reports whether the run succeeded and left no drift behind.
func (r *Report) Healthy() bool {
	return r.Status == StatusSucceeded && len(r.Drift) == 0
}

// Key is the object key the report is stored under.
func (r *Report) Key() string {
	return fmt.Sprintf("bootstrap/%s/%s.json", r.Database, r.StartedAt.UTC().Format(time.RFC3339))
}

// Uploader stores an object; satisfied by storage.MinIOStorage.
type Uploader interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// Publish uploads the report as JSON and returns its key.
func Publish(ctx context.Context, up Uploader, r *Report) (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	key := r.Key()
	if err := up.UploadFile(ctx, key, bytes.NewReader(b), int64(len(b)), contentType); err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}
	return key, nil
}

// Latest holds the most recent report for the status endpoints.
type Latest struct {
	mu sync.RWMutex
	r  *Report
}

func (l *Latest) Set(r *Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r = r
}

// Get returns nil until the first run has finished.
func (l *Latest) Get() *Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.r
}
