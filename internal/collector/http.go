package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"SentimentLedger/internal/model"
)

// DefaultURLTemplate requests a single daily row as CSV.
const DefaultURLTemplate = "https://stooq.com/q/d/l/?s={symbol}&d1={yyyymmdd}&d2={yyyymmdd}&i=d"

// HTTPRetriever downloads a daily table from a URL template. Supported
// placeholders: {symbol} {date} {yyyymmdd} {day} {month} {month0} {year}.
// {month0} is the zero-based month some legacy chart endpoints expect.
type HTTPRetriever struct {
	URLTemplate string
	Client      *http.Client
	Limiter     *rate.Limiter
	UserAgent   string
}

// NewHTTPRetriever creates a retriever with optional proxy support and a
// request rate limit. perSecond <= 0 disables limiting.
func NewHTTPRetriever(urlTemplate, proxyURL string, timeout time.Duration, perSecond float64) *HTTPRetriever {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &HTTPRetriever{
		URLTemplate: urlTemplate,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		UserAgent: "Mozilla/5.0",
	}
	if perSecond > 0 {
		r.Limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return r
}

func (r *HTTPRetriever) Name() string { return "http" }

// URL expands the template for symbol and date.
func (r *HTTPRetriever) URL(symbol string, date model.CalendarDate) string {
	return strings.NewReplacer(
		"{symbol}", url.QueryEscape(symbol),
		"{date}", date.String(),
		"{yyyymmdd}", fmt.Sprintf("%04d%02d%02d", date.Year, date.Month, date.Day),
		"{day}", strconv.Itoa(date.Day),
		"{month}", fmt.Sprintf("%02d", date.Month),
		"{month0}", fmt.Sprintf("%02d", date.Month-1),
		"{year}", strconv.Itoa(date.Year),
	).Replace(r.URLTemplate)
}

// Retrieve returns the raw table. A 404/410 response or a 2xx body without a
// header and data row is ErrNotFound; everything else non-2xx is an error.
func (r *HTTPRetriever) Retrieve(ctx context.Context, symbol string, date model.CalendarDate) ([]byte, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(symbol, date), nil)
	if err != nil {
		return nil, err
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http fetch %s: %w", date, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http read body %s: %w", date, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("http %s: status %d: %w", date, resp.StatusCode, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("http %s: status %d, body: %s", date, resp.StatusCode, truncate(body, 200))
	}
	if !hasDataRow(body) {
		return nil, fmt.Errorf("http %s: empty table: %w", date, ErrNotFound)
	}
	return body, nil
}

// hasDataRow reports whether body holds a delimited header followed by at
// least one non-blank line.
func hasDataRow(body []byte) bool {
	lines := 0
	for _, line := range bytes.Split(bytes.TrimSpace(body), []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines++
		}
	}
	return lines >= 2 && bytes.Contains(body, []byte(","))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
