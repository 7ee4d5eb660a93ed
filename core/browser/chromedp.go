package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/gaurav-prasanna/smartreader/core"
)

// Chromedp renders pages through chromedp. One allocator and browser are
// shared; each render opens a tab in a new browser context. Stealth
// patches are a rod feature and are not applied here.
type Chromedp struct {
	opts  Options
	slots *semaphore.Weighted

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	closed        bool
}

func NewChromedp(opts Options) *Chromedp {
	opts.defaults()
	return &Chromedp{opts: opts, slots: semaphore.NewWeighted(int64(opts.MaxPages))}
}

func (c *Chromedp) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if c.opts.ChromeBin != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ChromeBin))
	}
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	return opts
}

func (c *Chromedp) connect() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("browser: renderer is closed")
	}
	if c.browserCtx != nil && c.browserCtx.Err() == nil {
		return c.browserCtx, nil
	}

	var allocCtx context.Context
	if c.opts.Remote != "" {
		allocCtx, c.cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), c.opts.Remote)
		log.Info().Str("url", c.opts.Remote).Msg("connecting to remote chrome")
	} else {
		allocCtx, c.cancelAlloc = chromedp.NewExecAllocator(context.Background(), c.allocatorOptions()...)
	}
	c.browserCtx, c.cancelBrowser = chromedp.NewContext(allocCtx)
	// The first Run starts the browser.
	if err := chromedp.Run(c.browserCtx); err != nil {
		c.cleanupLocked()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	log.Info().Bool("headless", c.opts.Headless).Msg("chromedp browser ready")
	return c.browserCtx, nil
}

func (c *Chromedp) cleanupLocked() {
	if c.cancelBrowser != nil {
		c.cancelBrowser()
		c.cancelBrowser = nil
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
		c.cancelAlloc = nil
	}
	c.browserCtx = nil
}

func (c *Chromedp) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cleanupLocked()
	return nil
}

func (c *Chromedp) Render(ctx context.Context, url string, timeout time.Duration) (*core.RenderedDocument, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.slots.Release(1)

	logger := zerolog.Ctx(ctx).With().Str("url", url).Str("renderer", "chromedp").Logger()
	ctx = logger.WithContext(ctx)

	browserCtx, err := c.connect()
	if err != nil {
		return nil, &core.NavigationError{URL: url, Err: err}
	}
	tabCtx, cancelTab := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	setup := []chromedp.Action{network.Enable()}
	if len(c.opts.BlockURLs) > 0 {
		setup = append(setup, network.SetBlockedURLs(c.opts.BlockURLs))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &core.NavigationError{URL: url, Err: fmt.Errorf("opening tab: %w", err)}
	}
	mainFrame := cdp.FrameID(chromedp.FromContext(tabCtx).Target.TargetID)

	renderCtx, cancel := withBudget(tabCtx, timeout)
	defer cancel()

	idle := newIdleTracker(c.opts.IdleWindow)
	defer idle.Stop()
	var (
		statusMu sync.Mutex
		status   int
	)
	chromedp.ListenTarget(renderCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			idle.Started(string(e.RequestID))
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument && e.FrameID == mainFrame && e.Response != nil {
				statusMu.Lock()
				status = int(e.Response.Status)
				statusMu.Unlock()
			}
		case *network.EventLoadingFinished:
			idle.Finished(string(e.RequestID))
		case *network.EventLoadingFailed:
			idle.Finished(string(e.RequestID))
		}
	})

	// page.Navigate returns once the response headers arrive, unlike
	// chromedp.Navigate which also waits for the load event.
	err = chromedp.Run(renderCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, _, err := cdppage.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return &core.NavigationError{URL: url, Err: errors.New(strings.TrimSpace(errorText))}
		}
		return nil
	}))
	if err != nil {
		var navErr *core.NavigationError
		switch {
		case errors.As(err, &navErr):
			return nil, navErr
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case renderCtx.Err() == nil:
			return nil, &core.NavigationError{URL: url, Err: err}
		}
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

	capCtx, capCancel := context.WithTimeout(tabCtx, c.opts.CaptureTimeout)
	defer capCancel()
	var html, finalURL string
	if err := chromedp.Run(capCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	); err != nil {
		return nil, &core.NavigationError{URL: url, Err: fmt.Errorf("capturing DOM: %w", err)}
	}
	if finalURL == "" || finalURL == "about:blank" {
		finalURL = url
	}
	return snapshot(ctx, html, finalURL, truncated, idle.InFlight())
}
