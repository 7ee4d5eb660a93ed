// Package browser renders web pages into RenderedDocuments.
//
// Three backends share one contract: load the page in a fresh isolated
// context, wait until the network has been quiet for the idle window or
// the render deadline passes, then capture the DOM as it stands. Running
// out of time yields a Truncated document rather than an error.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/config"
	"github.com/gaurav-prasanna/smartreader/core/dom"
	"github.com/gaurav-prasanna/smartreader/core/fetch"
)

// Options configures the browser backends. Zero values take the defaults.
type Options struct {
	IdleWindow time.Duration
	MaxPages   int
	// BlockURLs are DevTools URL patterns never loaded (ads, trackers).
	BlockURLs []string
	Stealth   bool
	Headless  bool
	ChromeBin string
	// Remote is the DevTools websocket of a running browser. Empty
	// launches a local one.
	Remote    string
	UserAgent string
	// CaptureTimeout bounds the DOM snapshot taken after the deadline.
	CaptureTimeout time.Duration
}

func (o *Options) defaults() {
	if o.IdleWindow <= 0 {
		o.IdleWindow = 500 * time.Millisecond
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 4
	}
	if o.CaptureTimeout <= 0 {
		o.CaptureTimeout = 5 * time.Second
	}
}

// New builds the renderer named by cfg.Render.Backend. The HTTP backend
// reads pages through f.
func New(cfg *config.Config, f *fetch.HTTPFetcher) (core.PageRenderer, error) {
	opts := Options{
		IdleWindow: cfg.Render.IdleWindow,
		MaxPages:   cfg.Render.MaxPages,
		BlockURLs:  cfg.Render.BlockURLs,
		Stealth:    cfg.Render.Stealth,
		Headless:   cfg.Render.Headless,
		ChromeBin:  cfg.Render.ChromeBin,
		Remote:     cfg.Render.Remote,
		UserAgent:  cfg.Fetch.UserAgent,
	}
	switch cfg.Render.Backend {
	case "rod", "":
		return NewRod(opts), nil
	case "chromedp":
		return NewChromedp(opts), nil
	case "http":
		return NewStatic(f), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", cfg.Render.Backend)
	}
}

// withBudget bounds ctx by timeout. A non-positive timeout leaves only
// the caller's deadline.
func withBudget(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// settle blocks until the page is idle or renderCtx ends. It reports
// truncation when the render deadline won, and an error only when the
// caller's own context was cancelled.
func settle(ctx, renderCtx context.Context, idle *idleTracker) (bool, error) {
	select {
	case <-idle.Idle():
		return false, nil
	case <-renderCtx.Done():
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return true, nil
	}
}

// checkStatus turns an HTTP error status of the main document into a
// navigation failure. Zero means the status was never observed.
func checkStatus(url string, status int) error {
	if status >= 400 {
		return &core.NavigationError{URL: url, Status: status}
	}
	return nil
}

func snapshot(ctx context.Context, html, finalURL string, truncated bool, inflight int) (*core.RenderedDocument, error) {
	doc, err := dom.Document(html, finalURL, truncated)
	if err != nil {
		return nil, err
	}
	ev := zerolog.Ctx(ctx).Debug().
		Str("final_url", finalURL).
		Int("html_bytes", len(html)).
		Int("blocks", len(doc.Blocks)).
		Bool("truncated", truncated)
	if truncated {
		ev = ev.Int("inflight", inflight)
	}
	ev.Msg("page captured")
	return doc, nil
}
