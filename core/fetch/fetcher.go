// Package fetch implements the Fetcher and Prober interfaces.
// It performs plain HTTP requests with sensible defaults for reading
// documents: a browser-like user agent, a body size cap, and a bounded
// redirect chain restricted to http(s).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/urls"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultUserAgent    = "Mozilla/5.0 (compatible; SmartReader/1.0)"
	defaultMaxBytes     = 50 << 20
	defaultMaxRedirects = 10
)

// ErrTooLarge is returned when a body exceeds Options.MaxBytes.
var ErrTooLarge = errors.New("response body too large")

// Options configures an HTTPFetcher. Zero values take the defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBytes     int64
	MaxRedirects int
	// Client replaces the default transport, mostly for tests.
	Client *http.Client
}

func (o *Options) defaults() {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = defaultMaxRedirects
	}
}

// HTTPFetcher fetches documents via HTTP. It is safe for concurrent use.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
}

// New creates an HTTPFetcher.
func New(opts Options) *HTTPFetcher {
	opts.defaults()
	client := &http.Client{Timeout: opts.Timeout}
	if opts.Client != nil {
		c := *opts.Client
		client = &c
	}
	max := opts.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if _, err := urls.Parse(req.URL.String()); err != nil {
			return fmt.Errorf("redirect: %w", err)
		}
		return nil
	}
	return &HTTPFetcher{client: client, opts: opts}
}

// UserAgent is the agent string sent with every request.
func (f *HTTPFetcher) UserAgent() string { return f.opts.UserAgent }

// Fetch retrieves the full body of url. Transport failures and final
// statuses outside 2xx come back as *core.NavigationError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.Resource, error) {
	resp, err := f.do(ctx, http.MethodGet, url, func(req *http.Request) {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")
	})
	if err != nil {
		return nil, &core.NavigationError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	res := resource(url, resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, &core.NavigationError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, &core.NavigationError{URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, &core.NavigationError{URL: url, Err: fmt.Errorf("%w: over %d bytes", ErrTooLarge, f.opts.MaxBytes)}
	}
	res.Body = body
	return res, nil
}

// Head asks for status and content type only. Any HTTP status is a
// result, not an error; only transport failures are.
func (f *HTTPFetcher) Head(ctx context.Context, url string) (*core.Resource, error) {
	resp, err := f.do(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resource(url, resp), nil
}

// FetchPrefix reads at most n leading bytes of the body with a Range
// request. Servers that ignore Range are cut off after n bytes.
func (f *HTTPFetcher) FetchPrefix(ctx context.Context, url string, n int) (*core.Resource, error) {
	resp, err := f.do(ctx, http.MethodGet, url, func(req *http.Request) {
		req.Header.Set("Range", "bytes=0-"+strconv.Itoa(n-1))
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	res := resource(url, resp)
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(n)))
	if err != nil && len(body) == 0 {
		return nil, fmt.Errorf("reading prefix of %s: %w", url, err)
	}
	res.Body = body
	return res, nil
}

func (f *HTTPFetcher) do(ctx context.Context, method, url string, prepare func(*http.Request)) (*http.Response, error) {
	if _, err := urls.Parse(url); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if prepare != nil {
		prepare(req)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	return resp, nil
}

func resource(url string, resp *http.Response) *core.Resource {
	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &core.Resource{
		URL:         url,
		FinalURL:    final,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
}
