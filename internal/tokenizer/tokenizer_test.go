package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

func TestEstimator_CountTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short", "ab", 1},
		{"ascii", strings.Repeat("abcd", 10), 10},
		{"cjk", "居里夫人", 2},
		{"mixed", "居里夫人 discovered radium", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Estimator{}.CountTokens(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestEstimator_NonEmptyIsPositive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringN(1, 200, -1).Draw(t, "text")
		n, err := Estimator{}.CountTokens(text)
		if err != nil {
			t.Fatal(err)
		}
		if n < 1 {
			t.Fatalf("count %d for %q", n, text)
		}
	})
}

type failingCounter struct{ calls int }

func (f *failingCounter) CountTokens(string) (int, error) {
	f.calls++
	return 0, errors.New("encoding unavailable")
}

func (f *failingCounter) Name() string { return "failing" }

func TestFallback_DegradesOnce(t *testing.T) {
	primary := &failingCounter{}
	f := NewFallback(primary, Estimator{}, zaptest.NewLogger(t))
	assert.Equal(t, "failing", f.Name())

	n, err := f.CountTokens(strings.Repeat("abcd", 5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "estimator", f.Name())

	_, err = f.CountTokens("more text")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
}

func TestNew_UnknownEncodingFallsBack(t *testing.T) {
	f := New("no_such_encoding", nil)
	assert.Equal(t, "tiktoken[no_such_encoding]", f.Name())

	n, err := f.CountTokens("The court finds the evidence balanced.")
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Equal(t, "estimator", f.Name())
}

func TestNewTiktoken_DefaultEncoding(t *testing.T) {
	assert.Equal(t, "tiktoken[cl100k_base]", NewTiktoken("").Name())
}
