package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/gaurav-prasanna/smartreader/core"
)

// Rod renders pages with a Chrome driven through go-rod. The browser is
// started on first use and shared; every render gets its own incognito
// context so cookies and storage never leak between reads.
type Rod struct {
	opts  Options
	slots *semaphore.Weighted

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

func NewRod(opts Options) *Rod {
	opts.defaults()
	return &Rod{opts: opts, slots: semaphore.NewWeighted(int64(opts.MaxPages))}
}

func (r *Rod) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("browser: renderer is closed")
	}
	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.opts.Remote
	if wsURL == "" {
		l := launcher.New().
			Headless(r.opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if r.opts.ChromeBin != "" {
			l = l.Bin(r.opts.ChromeBin)
		}
		if r.opts.UserAgent != "" {
			l = l.Set("user-agent", r.opts.UserAgent)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		log.Info().Str("url", wsURL).Bool("headless", r.opts.Headless).Msg("launched local chrome")
	} else {
		log.Info().Str("url", wsURL).Msg("connecting to remote chrome")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		r.cleanupLocked()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	r.browser = b
	return b, nil
}

// reset drops a browser that stopped answering so the next render
// relaunches it.
func (r *Rod) reset(b *rod.Browser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == b {
		log.Warn().Msg("browser: dropping unresponsive chrome")
		r.cleanupLocked()
	}
}

func (r *Rod) cleanupLocked() {
	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
}

// Close shuts the shared browser down.
func (r *Rod) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cleanupLocked()
	return nil
}

// open creates an isolated page, relaunching the browser once if the
// shared one has died.
func (r *Rod) open() (*rod.Browser, *rod.Page, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		b, err := r.connect()
		if err != nil {
			return nil, nil, err
		}
		inc, err := b.Incognito()
		if err != nil {
			lastErr = err
			r.reset(b)
			continue
		}
		var page *rod.Page
		if r.opts.Stealth {
			page, err = stealth.Page(inc)
		} else {
			page, err = inc.Page(proto.TargetCreateTarget{})
		}
		if err != nil {
			_ = proto.TargetDisposeBrowserContext{BrowserContextID: inc.BrowserContextID}.Call(b)
			lastErr = err
			r.reset(b)
			continue
		}
		return inc, page, nil
	}
	return nil, nil, fmt.Errorf("browser: create tab: %w", lastErr)
}

func (r *Rod) Render(ctx context.Context, url string, timeout time.Duration) (*core.RenderedDocument, error) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.slots.Release(1)

	logger := zerolog.Ctx(ctx).With().Str("url", url).Str("renderer", "rod").Logger()
	ctx = logger.WithContext(ctx)

	inc, page, err := r.open()
	if err != nil {
		return nil, &core.NavigationError{URL: url, Err: err}
	}
	defer func() {
		_ = page.Close()
		_ = proto.TargetDisposeBrowserContext{BrowserContextID: inc.BrowserContextID}.Call(inc)
	}()

	renderCtx, cancel := withBudget(ctx, timeout)
	defer cancel()

	idle := newIdleTracker(r.opts.IdleWindow)
	defer idle.Stop()

	var (
		statusMu sync.Mutex
		status   int
	)
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, &core.NavigationError{URL: url, Err: fmt.Errorf("enabling network events: %w", err)}
	}
	if err := page.SetBlockedURLs(r.opts.BlockURLs); err != nil {
		logger.Warn().Err(err).Msg("resource blocking failed")
	}
	go page.Context(renderCtx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			// A redirect reuses the request id; it stays in flight.
			idle.Started(string(e.RequestID))
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Type == proto.NetworkResourceTypeDocument && e.FrameID == page.FrameID {
				statusMu.Lock()
				status = e.Response.Status
				statusMu.Unlock()
			}
		},
		func(e *proto.NetworkLoadingFinished) { idle.Finished(string(e.RequestID)) },
		func(e *proto.NetworkLoadingFailed) { idle.Finished(string(e.RequestID)) },
	)()

	if err := page.Context(renderCtx).Navigate(url); err != nil {
		var navErr *rod.NavigationError
		switch {
		case errors.As(err, &navErr):
			return nil, &core.NavigationError{URL: url, Err: errors.New(navErr.Reason)}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case renderCtx.Err() == nil:
			return nil, &core.NavigationError{URL: url, Err: err}
		}
		// The deadline hit before the server answered; capture whatever
		// the tab holds.
		logger.Debug().Err(err).Msg("navigation still pending at deadline")
	}
	idle.Arm()

	truncated, err := settle(ctx, renderCtx, idle)
	if err != nil {
		return nil, err
	}
	statusMu.Lock()
	st := status
	statusMu.Unlock()
	if err := checkStatus(url, st); err != nil {
		return nil, err
	}

	capCtx, capCancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.CaptureTimeout)
	defer capCancel()
	cp := page.Context(capCtx)
	html, err := cp.HTML()
	if err != nil {
		return nil, &core.NavigationError{URL: url, Err: fmt.Errorf("capturing DOM: %w", err)}
	}
	finalURL := url
	if info, err := cp.Info(); err == nil && info.URL != "" && info.URL != "about:blank" {
		finalURL = info.URL
	}
	return snapshot(ctx, html, finalURL, truncated, idle.InFlight())
}
