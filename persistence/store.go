package persistence

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
	StoreTypeMongo  StoreType = "mongo"
)

// RunStatus is the terminal status of an audited run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is the audit entry written once per run: the final session
// state plus how the trial loop ended and where the report went.
type RunRecord struct {
	ID     string    `json:"id" bson:"_id"`
	Topic  string    `json:"topic" bson:"topic"`
	Input  string    `json:"input" bson:"input"`
	Status RunStatus `json:"status" bson:"status"`

	LoopState  string `json:"loop_state" bson:"loop_state"`
	Iterations int    `json:"iterations" bson:"iterations"`
	RaisedBy   string `json:"raised_by,omitempty" bson:"raised_by,omitempty"`

	PositiveEvidence []string `json:"pos_data" bson:"pos_data"`
	NegativeEvidence []string `json:"neg_data" bson:"neg_data"`
	JudgeFeedback    string   `json:"judge_feedback,omitempty" bson:"judge_feedback,omitempty"`
	PositiveRounds   int      `json:"pos_round" bson:"pos_round"`
	NegativeRounds   int      `json:"neg_round" bson:"neg_round"`

	ReportPath   string `json:"report_path,omitempty" bson:"report_path,omitempty"`
	ReportTokens int    `json:"report_tokens,omitempty" bson:"report_tokens,omitempty"`

	ErrorMessage string        `json:"error,omitempty" bson:"error,omitempty"`
	Duration     time.Duration `json:"duration" bson:"duration"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
}

// RunFilter selects audit records. Zero fields match everything.
type RunFilter struct {
	Topic  string
	Status RunStatus
	Limit  int
}

func (f RunFilter) matches(r *RunRecord) bool {
	if f.Topic != "" && r.Topic != f.Topic {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Store is the base interface for all persistent stores
type Store interface {
	// Close closes the store and releases resources
	Close() error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

// RunStore persists run audit records.
type RunStore interface {
	Store

	// SaveRun inserts or replaces the record with the same ID
	SaveRun(ctx context.Context, record *RunRecord) error

	// GetRun returns ErrNotFound when id is unknown
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns matching records, newest first
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error)

	// DeleteRun removes a record; unknown ids return ErrNotFound
	DeleteRun(ctx context.Context, id string) error
}

// prepare validates a record and fills CreatedAt.
func prepare(record *RunRecord) error {
	if record == nil || record.ID == "" {
		return ErrInvalidInput
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.PositiveEvidence == nil {
		record.PositiveEvidence = []string{}
	}
	if record.NegativeEvidence == nil {
		record.NegativeEvidence = []string{}
	}
	return nil
}

// newestFirst sorts and applies the filter limit.
func newestFirst(records []*RunRecord, limit int) []*RunRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

func cloneRecord(r *RunRecord) *RunRecord {
	c := *r
	c.PositiveEvidence = append([]string{}, r.PositiveEvidence...)
	c.NegativeEvidence = append([]string{}, r.NegativeEvidence...)
	return &c
}
