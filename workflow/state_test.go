package workflow

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSessionState_ResetInitializesAllFields(t *testing.T) {
	s := NewSessionState()
	s.Set(FieldTopic, "stale")
	s.Append(FieldPositiveEvidence, "old")

	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, "", snap.Topic)
	assert.Equal(t, []string{}, snap.PositiveEvidence)
	assert.Equal(t, []string{}, snap.NegativeEvidence)
	assert.Equal(t, "", snap.JudgeFeedback)
	assert.Equal(t, 0, snap.PositiveRoundCount)
	assert.Equal(t, 0, snap.NegativeRoundCount)
	for _, f := range SessionFields {
		assert.NotNil(t, s.Get(f, nil), "field %s should be present after reset", f)
	}
}

func TestSessionState_GetDefault(t *testing.T) {
	s := NewSessionState()
	assert.Equal(t, "fallback", s.Get(FieldTopic, "fallback"))
	assert.Equal(t, []string{}, s.Strings(FieldNegativeEvidence))
	assert.Equal(t, 0, s.Int(FieldPositiveRounds))
}

func TestSessionState_AppendNormalizesNonList(t *testing.T) {
	s := NewSessionState()
	s.Set(FieldPositiveEvidence, "not a list")

	n := s.Append(FieldPositiveEvidence, "x")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"x"}, s.Strings(FieldPositiveEvidence))
}

func TestSessionState_GetReturnsCopy(t *testing.T) {
	s := NewSessionState()
	s.Append(FieldNegativeEvidence, "a")

	got := s.Strings(FieldNegativeEvidence)
	got[0] = "mutated"

	assert.Equal(t, []string{"a"}, s.Strings(FieldNegativeEvidence))
}

func TestSessionState_ResetFirst(t *testing.T) {
	s := NewSessionState()
	already, mutated := s.resetFirst()
	assert.False(t, already)
	assert.False(t, mutated)

	already, _ = s.resetFirst()
	assert.True(t, already)

	s2 := NewSessionState()
	s2.Set(FieldTopic, "x")
	already, mutated = s2.resetFirst()
	assert.False(t, already)
	assert.True(t, mutated)
}

func TestSessionState_VersionIncreases(t *testing.T) {
	s := NewSessionState()
	v0 := s.Version()
	s.Set(FieldJudgeFeedback, "more")
	s.Append(FieldPositiveEvidence, "p")
	s.Reset()
	assert.Equal(t, v0+3, s.Version())
}

func TestSessionState_ConcurrentAppendDisjointFields(t *testing.T) {
	s := NewSessionState()
	s.Reset()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Append(FieldPositiveEvidence, fmt.Sprintf("p%d", i))
		}()
		go func() {
			defer wg.Done()
			s.Append(FieldNegativeEvidence, fmt.Sprintf("n%d", i))
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.PositiveEvidence, 50)
	assert.Len(t, snap.NegativeEvidence, 50)
}

// Appends preserve every earlier element in order.
func TestProperty_AppendPreservesPrefix(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOf(rapid.String()).Draw(rt, "values")

		s := NewSessionState()
		s.Reset()
		for i, v := range values {
			before := s.Strings(FieldPositiveEvidence)
			n := s.Append(FieldPositiveEvidence, v)
			after := s.Strings(FieldPositiveEvidence)

			require.Equal(rt, i+1, n)
			require.Equal(rt, before, after[:len(before)])
			require.Equal(rt, v, after[len(after)-1])
		}
		require.Equal(rt, len(values), len(s.Snapshot().PositiveEvidence))
	})
}

func TestWriteSet(t *testing.T) {
	ws := newWriteSet("branch")
	ws.add(FieldTopic)
	ws.add(FieldTopic)
	ws.add(FieldPositiveEvidence)

	assert.True(t, ws.has(FieldTopic))
	assert.False(t, ws.has(FieldNegativeEvidence))
	assert.ElementsMatch(t, []Field{FieldTopic, FieldPositiveEvidence}, ws.list())
}
