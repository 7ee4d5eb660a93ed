package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/fetch"
)

// Static reads the server HTML without running scripts. It never
// truncates: with no scripts there is no network idle to wait for, so the
// render budget does not apply and only the caller's deadline bounds the
// fetch. A caller deadline that expires mid-fetch is returned as the
// context error, as the browser backends do.
type Static struct {
	fetcher *fetch.HTTPFetcher
}

func NewStatic(f *fetch.HTTPFetcher) *Static {
	if f == nil {
		f = fetch.New(fetch.Options{})
	}
	return &Static{fetcher: f}
}

func (s *Static) Render(ctx context.Context, url string, _ time.Duration) (*core.RenderedDocument, error) {
	res, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	html, err := utf8Body(res.Body, res.ContentType)
	if err != nil {
		return nil, &core.NavigationError{URL: url, Err: err}
	}
	return snapshot(ctx, html, res.FinalURL, false, 0)
}

func (s *Static) Close() error { return nil }

// utf8Body decodes body using the charset from the content type or the
// document's own meta tags.
func utf8Body(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("detecting charset: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decoding body: %w", err)
	}
	return string(out), nil
}
