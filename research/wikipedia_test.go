package research

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/courtflow/retry"
	"github.com/BaSui01/courtflow/testutil"
	"github.com/BaSui01/courtflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const searchBody = `{"batchcomplete":true,"query":{"search":[
	{"title":"Marie Curie","snippet":"<span class=\"searchmatch\">Marie</span> Salomea"},
	{"title":"Curie family","snippet":"The &amp; family"},
	{"title":"Radium Institute","snippet":"An <b>institute</b> in Paris"}
]}}`

const extractBody = `{"batchcomplete":true,"query":{
	"redirects":[{"from":"Curie family","to":"Curie (family)"}],
	"pages":[
		{"title":"Radium Institute","extract":""},
		{"title":"Marie Curie","extract":"Marie Curie was a Polish and naturalised-French physicist."},
		{"title":"Curie (family)","extract":"The Curie family includes several laureates."}
	]}}`

func newWikiServer(t *testing.T, handler http.HandlerFunc) *WikipediaSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultWikipediaConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 0
	return NewWikipediaSource(cfg, zaptest.NewLogger(t))
}

func wikiHandler(search, extract string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("list") == "search":
			fmt.Fprint(w, search)
		case q.Get("prop") == "extracts":
			fmt.Fprint(w, extract)
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}
}

func TestWikipediaSource_Search(t *testing.T) {
	var agents []string
	src := newWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		q := r.URL.Query()
		if q.Get("list") == "search" {
			assert.Equal(t, "Marie Curie achievements", q.Get("srsearch"))
			assert.Equal(t, "3", q.Get("srlimit"))
		} else {
			assert.Equal(t, "Marie Curie|Curie family|Radium Institute", q.Get("titles"))
			assert.Equal(t, "1", q.Get("exintro"))
			assert.Equal(t, "1", q.Get("explaintext"))
		}
		wikiHandler(searchBody, extractBody)(w, r)
	})

	got, err := src.Search(testutil.TestContext(t), "Marie Curie achievements")
	require.NoError(t, err)

	want := "Page: Marie Curie\nSummary: Marie Curie was a Polish and naturalised-French physicist.\n\n" +
		"Page: Curie family\nSummary: The Curie family includes several laureates.\n\n" +
		"Page: Radium Institute\nSummary: An institute in Paris"
	assert.Equal(t, want, got)
	assert.Equal(t, []string{DefaultWikipediaConfig().UserAgent, DefaultWikipediaConfig().UserAgent}, agents)
}

func TestWikipediaSource_Truncates(t *testing.T) {
	long := strings.Repeat("é", 5000)
	src := newWikiServer(t, wikiHandler(
		`{"query":{"search":[{"title":"Long","snippet":""}]}}`,
		`{"query":{"pages":[{"title":"Long","extract":"`+long+`"}]}}`,
	))

	got, err := src.Search(context.Background(), "long")
	require.NoError(t, err)
	assert.Len(t, []rune(got), 4000)
	assert.True(t, strings.HasPrefix(got, "Page: Long\nSummary: éé"))
}

func TestWikipediaSource_NoResults(t *testing.T) {
	var calls atomic.Int32
	src := newWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		wikiHandler(`{"query":{"search":[]}}`, `{}`)(w, r)
	})

	got, err := src.Search(context.Background(), "zzxxqq")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), calls.Load())

	got, err = src.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWikipediaSource_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		code      types.ErrorCode
		retryable bool
	}{
		{
			name:      "service unavailable",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			code:      types.ErrTransientBackend,
			retryable: true,
		},
		{
			name:      "rate limited",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			code:      types.ErrTransientBackend,
			retryable: true,
		},
		{
			name:    "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			code:    types.ErrBackendFailure,
		},
		{
			name:    "api error",
			handler: wikiHandler(`{"error":{"code":"badvalue","info":"Unrecognized value"}}`, `{}`),
			code:    types.ErrBackendFailure,
		},
		{
			name:    "malformed json",
			handler: wikiHandler(`{"query":`, `{}`),
			code:    types.ErrBackendFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newWikiServer(t, tt.handler)
			_, err := src.Search(context.Background(), "Napoleon")
			require.Error(t, err)
			assert.Equal(t, tt.code, types.GetErrorCode(err))
			assert.Equal(t, tt.retryable, types.IsRetryable(err))
		})
	}
}

func TestWikipediaSource_CancelledContext(t *testing.T) {
	src := newWikiServer(t, wikiHandler(searchBody, extractBody))
	_, err := src.Search(testutil.CancelledContext(), "Napoleon")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWikipediaSource_WithRetry(t *testing.T) {
	var failures atomic.Int32
	src := newWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if failures.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		wikiHandler(searchBody, extractBody)(w, r)
	})

	policy := &retry.Policy{Attempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	got, err := WithRetry(src, retry.NewBackoffRetryer(policy, nil)).Search(context.Background(), "Marie Curie")
	require.NoError(t, err)
	assert.Contains(t, got, "Page: Marie Curie")

	failures.Store(-100)
	_, err = WithRetry(src, retry.NewBackoffRetryer(policy, nil)).Search(context.Background(), "Marie Curie")
	require.Error(t, err)
	assert.Equal(t, types.ErrBackendFailure, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestEndpointFromLanguage(t *testing.T) {
	assert.Equal(t, "https://en.wikipedia.org/w/api.php", WikipediaConfig{}.endpoint())
	assert.Equal(t, "https://fr.wikipedia.org/w/api.php", WikipediaConfig{Language: "fr"}.endpoint())
	assert.Equal(t, "http://local", WikipediaConfig{BaseURL: "http://local", Language: "fr"}.endpoint())
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`<span class="searchmatch">Ada</span> Lovelace`, "Ada Lovelace"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"  spaced\n\tout  ", "spaced out"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripHTML(tt.in), tt.in)
	}
}
