// Package changes keeps the ordered log of what each pipeline stage did,
// with unified diffs of the files it touched.
package changes

import (
	"fmt"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// Record is one entry in the change log. Records are values; callers receive
// copies and cannot mutate the log.
type Record struct {
	AgentName   string                 `json:"agent_name"`
	Timestamp   time.Time              `json:"timestamp"`
	FilePath    string                 `json:"file_path"`
	Description string                 `json:"description"`
	Diff        string                 `json:"diff,omitempty"`
	Details     map[string]interface{} `json:"details"`
}

// FileReader is the read side of the project filesystem.
type FileReader interface {
	ReadFile(path string) (string, error)
}

// Observer is notified after every appended record.
type Observer interface {
	RecordChange(agent string)
}

// AgentGroup is the records of one agent, in append order.
type AgentGroup struct {
	Agent   string
	Records []Record
}

// Tracker records file snapshots and change records for a run.
type Tracker struct {
	mu        sync.Mutex
	fs        FileReader
	snapshots map[string]string
	records   []Record
	now       func() time.Time
	logger    *zap.Logger
	observer  Observer
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the tracker logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithObserver attaches a record observer, typically the run metrics.
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observer = o }
}

// NewTracker builds an empty tracker reading files through fs.
func NewTracker(fs FileReader, opts ...Option) *Tracker {
	t := &Tracker{
		fs:        fs,
		snapshots: make(map[string]string),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Snapshot stores the current content of path as the diff baseline. A missing
// or unreadable file is ignored.
func (t *Tracker) Snapshot(path string) {
	content, err := t.fs.ReadFile(path)
	if err != nil {
		t.logger.Debug("snapshot skipped", zap.String("path", path), zap.Error(err))
		return
	}
	t.mu.Lock()
	t.snapshots[path] = content
	t.mu.Unlock()
}

// Record appends a change record. When path has a snapshot and is readable
// now, the record carries a unified diff and the current content becomes the
// new baseline.
func (t *Tracker) Record(agent, path, description string, details map[string]interface{}) Record {
	current, readErr := t.fs.ReadFile(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Record{
		AgentName:   agent,
		Timestamp:   t.now(),
		FilePath:    path,
		Description: description,
		Details:     copyDetails(details),
	}

	if readErr == nil {
		if previous, ok := t.snapshots[path]; ok {
			diff, err := unifiedDiff(path, previous, current)
			if err != nil {
				t.logger.Warn("diff failed", zap.String("path", path), zap.Error(err))
			}
			rec.Diff = diff
		}
		t.snapshots[path] = current
	}

	t.records = append(t.records, rec)
	t.logger.Debug("change recorded",
		zap.String("agent", agent),
		zap.String("path", path),
		zap.Int("diff_bytes", len(rec.Diff)),
	)
	if t.observer != nil {
		t.observer.RecordChange(agent)
	}
	return copyRecord(rec)
}

// Records returns a copy of the log in append order.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	for i, r := range t.records {
		out[i] = copyRecord(r)
	}
	return out
}

// Len returns the number of records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// GroupByAgent partitions the log by agent, agents in first-seen order.
func (t *Tracker) GroupByAgent() []AgentGroup {
	return GroupByAgent(t.Records())
}

// GroupByAgent partitions records by agent, agents in first-seen order.
func GroupByAgent(records []Record) []AgentGroup {
	index := make(map[string]int)
	var groups []AgentGroup
	for _, r := range records {
		i, ok := index[r.AgentName]
		if !ok {
			i = len(groups)
			index[r.AgentName] = i
			groups = append(groups, AgentGroup{Agent: r.AgentName})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

func unifiedDiff(path, previous, current string) (string, error) {
	if previous == current {
		return "", nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: "previous/" + path,
		ToFile:   "current/" + path,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("unified diff %s: %w", path, err)
	}
	return diff, nil
}

func copyRecord(r Record) Record {
	r.Details = copyDetails(r.Details)
	return r
}

func copyDetails(details map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}
