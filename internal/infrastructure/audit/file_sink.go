package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// FileSink appends audit events to a JSON-lines file.
type FileSink struct {
	mu   sync.Mutex
	path string
	now  func() time.Time

	// Decisions also writes one line per decision when set.
	Decisions bool
}

// NewFileSink creates a sink appending to path, creating parent directories.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	return &FileSink{path: path, now: time.Now}, nil
}

type fileEvent struct {
	Timestamp string               `json:"timestamp"`
	Event     string               `json:"event"`
	Run       *RunSummary          `json:"run,omitempty"`
	Decision  *model.MatchDecision `json:"decision,omitempty"`
	User      string               `json:"user,omitempty"`
}

func (s *FileSink) RunCompleted(ctx context.Context, summary RunSummary) error {
	return s.append(fileEvent{Event: "match_run", Run: &summary, User: os.Getenv("USER")})
}

func (s *FileSink) Decision(ctx context.Context, d model.MatchDecision) error {
	if !s.Decisions {
		return nil
	}
	return s.append(fileEvent{Event: "match_decision", Decision: &d})
}

func (s *FileSink) append(ev fileEvent) error {
	ev.Timestamp = s.now().UTC().Format(time.RFC3339Nano)
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return f.Close()
}
