package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/http/httpproxy"
)

const (
	maxRedirects = 5
	maxAttempts  = 3
)

// fetchSleepFunc is swapped out by tests to skip retry backoff
var fetchSleepFunc = time.Sleep

// Fetcher fetches HTML pages over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a new Fetcher with the given configuration.
// Empty proxy settings fall back to the HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = newProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Client exposes the underlying HTTP client for companion requests (robots.txt)
func (f *Fetcher) Client() *http.Client {
	return f.httpClient
}

// UserAgent returns the configured User-Agent
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// StatusError reports a response outside the 2xx range
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// NetworkError reports a request that never produced a response
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "fetch: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// FetchResult contains the fetched HTML and response metadata
type FetchResult struct {
	HTML        string
	StatusCode  int
	ContentType string
	Charset     string
	FinalURL    string
}

// Fetch retrieves one page and decodes it to UTF-8
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	html, name, err := decodeBody(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	return &FetchResult{
		HTML:        html,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Charset:     name,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures (network errors, 5xx, 429)
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts || !isRetryableFetchError(err) || ctx.Err() != nil {
			break
		}
		fetchSleepFunc(time.Duration(attempt) * 2 * time.Second)
	}
	return nil, lastErr
}

// isRetryableFetchError classifies errors produced by Fetch
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset.
// Undeclared bodies that are already valid UTF-8 are kept as is.
func decodeBody(body []byte, contentType string) (string, string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))), "utf-8", nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", name, err
	}
	return string(decoded), name, nil
}

// newProxyFunc builds the transport proxy selector
func newProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	cfg := &httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}
	proxy := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}
