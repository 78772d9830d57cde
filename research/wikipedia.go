package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/courtflow/internal/ctxkeys"
	"github.com/BaSui01/courtflow/internal/tlsutil"
	"github.com/BaSui01/courtflow/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WikipediaConfig 配置 Wikipedia 检索源.
type WikipediaConfig struct {
	BaseURL           string        `json:"base_url" yaml:"base_url"`                       // MediaWiki API endpoint, derived from Language when empty
	Language          string        `json:"language" yaml:"language"`                       // Wikipedia language edition
	TopK              int           `json:"top_k" yaml:"top_k"`                             // Pages loaded per query
	MaxChars          int           `json:"max_chars" yaml:"max_chars"`                     // Cap on the returned summary
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`                         // HTTP request timeout
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"` // Outbound rate limit, <= 0 disables
	UserAgent         string        `json:"user_agent" yaml:"user_agent"`
}

// DefaultWikipediaConfig 返回默认配置：英文维基百科，前 3 个页面，4000 字符上限。
func DefaultWikipediaConfig() WikipediaConfig {
	return WikipediaConfig{
		Language:          "en",
		TopK:              3,
		MaxChars:          4000,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 5,
		UserAgent:         "courtflow/1.0 (historical court research)",
	}
}

func (c WikipediaConfig) endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	lang := c.Language
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
}

// WikipediaSource 通过 MediaWiki API 检索页面简介，实现 workflow.Researcher。
type WikipediaSource struct {
	config  WikipediaConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewWikipediaSource 创建新的 Wikipedia 检索源.
func NewWikipediaSource(config WikipediaConfig, logger *zap.Logger) *WikipediaSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultWikipediaConfig()
	if config.TopK <= 0 {
		config.TopK = def.TopK
	}
	if config.MaxChars <= 0 {
		config.MaxChars = def.MaxChars
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &WikipediaSource{
		config:  config,
		client:  tlsutil.SecureHTTPClient(config.Timeout, config.UserAgent),
		limiter: limiter,
		logger:  logger.With(zap.String("component", "wikipedia")),
	}
}

// Name 返回数据源名称。
func (w *WikipediaSource) Name() string { return "wikipedia" }

// page is one search hit with its resolved intro extract.
type page struct {
	Title   string
	Snippet string
	Extract string
}

// Search 检索 query 并返回 "Page: …\nSummary: …" 格式的摘要，没有结果时返回空字符串。
func (w *WikipediaSource) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	pages, err := w.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		w.logger.Debug("wikipedia search returned no pages", ctxkeys.LogFields(ctx, zap.String("query", query))...)
		return "", nil
	}

	if err := w.loadExtracts(ctx, pages); err != nil {
		return "", err
	}

	summary := formatPages(pages, w.config.MaxChars)
	w.logger.Debug("wikipedia search completed", ctxkeys.LogFields(ctx,
		zap.String("query", query),
		zap.Int("pages", len(pages)),
		zap.Int("chars", len([]rune(summary))))...)
	return summary, nil
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
	Error *apiError `json:"error,omitempty"`
}

type extractResponse struct {
	Query struct {
		Normalized []titleMapping `json:"normalized"`
		Redirects  []titleMapping `json:"redirects"`
		Pages      []struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error,omitempty"`
}

type titleMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (w *WikipediaSource) search(ctx context.Context, query string) ([]*page, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {query},
		"srlimit":       {fmt.Sprintf("%d", w.config.TopK)},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var resp searchResponse
	if err := w.call(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.asError()
	}

	pages := make([]*page, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		if len(pages) == w.config.TopK {
			break
		}
		pages = append(pages, &page{Title: hit.Title, Snippet: hit.Snippet})
	}
	return pages, nil
}

func (w *WikipediaSource) loadExtracts(ctx context.Context, pages []*page) error {
	titles := make([]string, len(pages))
	for i, p := range pages {
		titles[i] = p.Title
	}
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts"},
		"exintro":       {"1"},
		"explaintext":   {"1"},
		"redirects":     {"1"},
		"titles":        {strings.Join(titles, "|")},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var resp extractResponse
	if err := w.call(ctx, params, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error.asError()
	}

	extracts := make(map[string]string, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		if !p.Missing {
			extracts[p.Title] = strings.TrimSpace(p.Extract)
		}
	}
	resolve := func(title string) string {
		for _, mappings := range [][]titleMapping{resp.Query.Normalized, resp.Query.Redirects} {
			for _, m := range mappings {
				if m.From == title {
					title = m.To
				}
			}
		}
		return title
	}
	for _, p := range pages {
		p.Extract = extracts[resolve(p.Title)]
	}
	return nil
}

// call 执行一次限流的 API 请求并解码 JSON 响应。
func (w *WikipediaSource) call(ctx context.Context, params url.Values, dest any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return types.NewTransientError("wikipedia rate limit wait failed", err)
	}

	requestURL := w.config.endpoint() + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return types.NewError(types.ErrBackendFailure, "failed to create wikipedia request").WithCause(err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return types.NewTransientError("wikipedia request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return types.NewTransientError("wikipedia unavailable",
			fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return types.Errorf(types.ErrBackendFailure, "wikipedia returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewTransientError("failed to read wikipedia response", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return types.NewError(types.ErrBackendFailure, "failed to parse wikipedia response").WithCause(err)
	}
	return nil
}

func (e *apiError) asError() error {
	return types.Errorf(types.ErrBackendFailure, "wikipedia api error %s", e.Code).
		WithCause(errors.New(e.Info))
}

// formatPages 按检索顺序拼接页面摘要，截断到 maxChars 个字符。
func formatPages(pages []*page, maxChars int) string {
	blocks := make([]string, 0, len(pages))
	for _, p := range pages {
		text := p.Extract
		if text == "" {
			text = StripHTML(p.Snippet)
		}
		if text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Page: %s\nSummary: %s", p.Title, text))
	}
	out := strings.Join(blocks, "\n\n")
	if r := []rune(out); maxChars > 0 && len(r) > maxChars {
		out = string(r[:maxChars])
	}
	return out
}
