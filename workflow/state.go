package workflow

import (
	"sync"
)

// Field names a SessionState slot.
type Field string

// SessionState fields
const (
	FieldTopic            Field = "topic"
	FieldPositiveEvidence Field = "pos_data"
	FieldNegativeEvidence Field = "neg_data"
	FieldJudgeFeedback    Field = "judge_feedback"
	FieldPositiveRounds   Field = "pos_round"
	FieldNegativeRounds   Field = "neg_round"
)

// SessionFields lists every field Reset initializes, in display order.
var SessionFields = []Field{
	FieldTopic,
	FieldPositiveEvidence,
	FieldNegativeEvidence,
	FieldJudgeFeedback,
	FieldPositiveRounds,
	FieldNegativeRounds,
}

// appendOnlyFields may only grow during a run.
var appendOnlyFields = map[Field]bool{
	FieldPositiveEvidence: true,
	FieldNegativeEvidence: true,
}

// IsAppendOnly reports whether field only accepts AppendField mutations.
func IsAppendOnly(field Field) bool {
	return appendOnlyFields[field]
}

func zeroValue(field Field) any {
	switch field {
	case FieldPositiveEvidence, FieldNegativeEvidence:
		return []string{}
	case FieldPositiveRounds, FieldNegativeRounds:
		return 0
	default:
		return ""
	}
}

// StateReader is the read-only view handed to tasks.
type StateReader interface {
	Get(field Field, def any) any
	String(field Field) string
	Strings(field Field) []string
	Int(field Field) int
	Snapshot() Snapshot
}

// SessionState is the single mutable record shared by every task of one run.
// It is owned by the Engine and handed to tasks by reference.
//
// The mutex only keeps individual calls memory-safe. Concurrent writers are
// expected to touch disjoint fields; the engine does not arbitrate conflicts
// (see Parallel and WithConflictDetection).
type SessionState struct {
	mu        sync.RWMutex
	values    map[Field]any
	version   uint64
	mutations int
	resets    int
}

// NewSessionState creates an empty store. Fields are absent until Reset or
// the first Set/Append.
func NewSessionState() *SessionState {
	return &SessionState{values: make(map[Field]any)}
}

// Set overwrites field unconditionally.
func (s *SessionState) Set(field Field, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[field] = cloneValue(value)
	s.version++
	s.mutations++
}

// Append adds value to the list stored under field. An absent or non-list
// field is normalized to an empty list first.
func (s *SessionState) Append(field Field, value string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.values[field].([]string)
	if !ok {
		existing = nil
	}
	next := make([]string, 0, len(existing)+1)
	next = append(next, existing...)
	next = append(next, value)

	s.values[field] = next
	s.version++
	s.mutations++
	return len(next)
}

// Get returns the stored value or def when field is absent.
func (s *SessionState) Get(field Field, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[field]
	if !ok {
		return def
	}
	return cloneValue(v)
}

// String returns a string field, or "" when absent or mistyped.
func (s *SessionState) String(field Field) string {
	v, _ := s.Get(field, "").(string)
	return v
}

// Strings returns a copy of a list field, or an empty list.
func (s *SessionState) Strings(field Field) []string {
	v, ok := s.Get(field, []string{}).([]string)
	if !ok {
		return []string{}
	}
	return v
}

// Int returns an integer field, or 0 when absent or mistyped.
func (s *SessionState) Int(field Field) int {
	v, _ := s.Get(field, 0).(int)
	return v
}

// Reset sets all six session fields to their zero values atomically.
func (s *SessionState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *SessionState) resetLocked() {
	s.values = make(map[Field]any, len(SessionFields))
	for _, f := range SessionFields {
		s.values[f] = zeroValue(f)
	}
	s.version++
	s.resets++
}

// resetFirst performs the run's single reset. It refuses a second reset and
// a reset issued after any other mutation.
func (s *SessionState) resetFirst() (alreadyReset bool, mutatedBefore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resets > 0 {
		return true, false
	}
	if s.mutations > 0 {
		return false, true
	}
	s.resetLocked()
	return false, false
}

// Version increases on every mutation, including Reset.
func (s *SessionState) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot captures a deep copy of all fields.
type Snapshot struct {
	Topic              string   `json:"topic"`
	PositiveEvidence   []string `json:"pos_data"`
	NegativeEvidence   []string `json:"neg_data"`
	JudgeFeedback      string   `json:"judge_feedback"`
	PositiveRoundCount int      `json:"pos_round"`
	NegativeRoundCount int      `json:"neg_round"`
	Version            uint64   `json:"version"`
}

// Snapshot creates a snapshot of the current state.
func (s *SessionState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	str := func(f Field) string {
		v, _ := s.values[f].(string)
		return v
	}
	list := func(f Field) []string {
		v, _ := s.values[f].([]string)
		out := make([]string, len(v))
		copy(out, v)
		return out
	}
	num := func(f Field) int {
		v, _ := s.values[f].(int)
		return v
	}

	return Snapshot{
		Topic:              str(FieldTopic),
		PositiveEvidence:   list(FieldPositiveEvidence),
		NegativeEvidence:   list(FieldNegativeEvidence),
		JudgeFeedback:      str(FieldJudgeFeedback),
		PositiveRoundCount: num(FieldPositiveRounds),
		NegativeRoundCount: num(FieldNegativeRounds),
		Version:            s.version,
	}
}

func cloneValue(v any) any {
	if list, ok := v.([]string); ok {
		out := make([]string, len(list))
		copy(out, list)
		return out
	}
	return v
}

// writeSet records the fields mutated by one parallel branch.
type writeSet struct {
	owner  string
	mu     sync.Mutex
	fields map[Field]struct{}
}

func newWriteSet(owner string) *writeSet {
	return &writeSet{owner: owner, fields: make(map[Field]struct{})}
}

func (w *writeSet) add(field Field) {
	w.mu.Lock()
	w.fields[field] = struct{}{}
	w.mu.Unlock()
}

func (w *writeSet) has(field Field) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.fields[field]
	return ok
}

func (w *writeSet) list() []Field {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Field, 0, len(w.fields))
	for f := range w.fields {
		out = append(out, f)
	}
	return out
}
