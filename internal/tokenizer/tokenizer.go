package tokenizer

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// DefaultEncoding is the tiktoken encoding used for report metadata.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens in text.
type Counter interface {
	CountTokens(text string) (int, error)
	Name() string
}

// =============================================================================
// tiktoken
// =============================================================================

// Tiktoken counts with a BPE encoding. The encoding is loaded on first use
// and may be downloaded then.
type Tiktoken struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// NewTiktoken creates a tiktoken counter; empty encoding means DefaultEncoding.
func NewTiktoken(encoding string) *Tiktoken {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Tiktoken{encoding: encoding}
}

func (t *Tiktoken) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *Tiktoken) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) Name() string {
	return "tiktoken[" + t.encoding + "]"
}

// =============================================================================
// 估算器
// =============================================================================

// Estimator approximates token counts from character classes:
// CJK about 1.5 chars per token, everything else about 4.
type Estimator struct{}

func (Estimator) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}
	n := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if n == 0 {
		n = 1
	}
	return n, nil
}

func (Estimator) Name() string { return "estimator" }

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}

// =============================================================================
// 降级
// =============================================================================

// Fallback uses primary and switches to secondary for good after the
// first primary error.
type Fallback struct {
	primary   Counter
	secondary Counter
	logger    *zap.Logger

	mu       sync.Mutex
	degraded bool
}

// New returns a tiktoken counter that degrades to the estimator when the
// encoding cannot be loaded.
func New(encoding string, logger *zap.Logger) *Fallback {
	return NewFallback(NewTiktoken(encoding), Estimator{}, logger)
}

// NewFallback combines two counters.
func NewFallback(primary, secondary Counter, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(zap.String("component", "tokenizer")),
	}
}

func (f *Fallback) CountTokens(text string) (int, error) {
	if !f.isDegraded() {
		n, err := f.primary.CountTokens(text)
		if err == nil {
			return n, nil
		}
		f.degrade(err)
	}
	return f.secondary.CountTokens(text)
}

// Name reports the counter currently in use.
func (f *Fallback) Name() string {
	if f.isDegraded() {
		return f.secondary.Name()
	}
	return f.primary.Name()
}

func (f *Fallback) isDegraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

func (f *Fallback) degrade(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		return
	}
	f.degraded = true
	f.logger.Warn("token counter unavailable, falling back",
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.secondary.Name()),
		zap.Error(err),
	)
}
