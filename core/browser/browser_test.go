package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/config"
	"github.com/gaurav-prasanna/smartreader/core/fetch"
)

func fired(t *idleTracker, within time.Duration) bool {
	select {
	case <-t.Idle():
		return true
	case <-time.After(within):
		return false
	}
}

func TestIdleFiresAfterQuietWindow(t *testing.T) {
	tr := newIdleTracker(20 * time.Millisecond)
	defer tr.Stop()
	tr.Arm()
	assert.True(t, fired(tr, time.Second))
}

func TestIdleWaitsForInflight(t *testing.T) {
	tr := newIdleTracker(20 * time.Millisecond)
	defer tr.Stop()
	tr.Started("a")
	tr.Started("b")
	tr.Arm()
	assert.False(t, fired(tr, 60*time.Millisecond))

	tr.Finished("a")
	assert.False(t, fired(tr, 60*time.Millisecond))
	assert.Equal(t, 1, tr.InFlight())

	tr.Finished("b")
	assert.True(t, fired(tr, time.Second))
	assert.Zero(t, tr.InFlight())
}

func TestIdleNewRequestRestartsWindow(t *testing.T) {
	tr := newIdleTracker(50 * time.Millisecond)
	defer tr.Stop()
	tr.Arm()
	time.Sleep(20 * time.Millisecond)
	tr.Started("late")
	tr.Finished("late")
	tr.Finished("unknown")
	start := time.Now()
	require.True(t, fired(tr, time.Second))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestIdleNotArmedNeverFires(t *testing.T) {
	tr := newIdleTracker(10 * time.Millisecond)
	defer tr.Stop()
	tr.Started("a")
	tr.Finished("a")
	assert.False(t, fired(tr, 50*time.Millisecond))
}

func TestSettle(t *testing.T) {
	tr := newIdleTracker(time.Hour)
	defer tr.Stop()
	tr.Arm()

	renderCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	truncated, err := settle(context.Background(), renderCtx, tr)
	require.NoError(t, err)
	assert.True(t, truncated)

	parent, cancelParent := context.WithCancel(context.Background())
	cancelParent()
	renderCtx, cancel = context.WithTimeout(parent, time.Hour)
	defer cancel()
	_, err = settle(parent, renderCtx, tr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticRender(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><head><title>Caf\xe9</title></head><body><h1>Caf\xe9 notes</h1><p>Body text.</p></body></html>"))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/article", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewStatic(fetch.New(fetch.Options{}))
	defer r.Close()

	doc, err := r.Render(context.Background(), srv.URL+"/old", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, core.KindWebPage, doc.Kind)
	assert.Equal(t, srv.URL+"/article", doc.URL)
	assert.False(t, doc.Truncated)
	assert.Equal(t, "Café", doc.SourceMetadata.Get("title"))
	require.NotEmpty(t, doc.Blocks)
	assert.Equal(t, core.Heading(1, "Café notes").Text, doc.Blocks[0].Text)

	_, err = r.Render(context.Background(), srv.URL+"/gone", 5*time.Second)
	var ne *core.NavigationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusGone, ne.Status)
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, checkStatus("u", 0))
	assert.NoError(t, checkStatus("u", 304))
	var ne *core.NavigationError
	require.ErrorAs(t, checkStatus("u", 404), &ne)
	assert.Equal(t, 404, ne.Status)
}

func TestNewPicksBackend(t *testing.T) {
	cfg := config.Default()
	f := fetch.New(fetch.Options{})

	for backend, want := range map[string]any{
		"rod":      &Rod{},
		"chromedp": &Chromedp{},
		"http":     &Static{},
	} {
		cfg.Render.Backend = backend
		r, err := New(cfg, f)
		require.NoError(t, err, backend)
		assert.IsType(t, want, r, backend)
		require.NoError(t, r.Close())
	}

	cfg.Render.Backend = "lynx"
	_, err := New(cfg, f)
	assert.Error(t, err)
}

func TestWithBudget(t *testing.T) {
	ctx, cancel := withBudget(context.Background(), 0)
	_, ok := ctx.Deadline()
	assert.False(t, ok)
	cancel()
	assert.Error(t, ctx.Err())

	ctx, cancel = withBudget(context.Background(), time.Minute)
	defer cancel()
	dl, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), dl, time.Second)
}

func TestStaticIgnoresRenderBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>Slow but complete.</p></body></html>"))
	}))
	defer srv.Close()
	r := NewStatic(nil)

	doc, err := r.Render(context.Background(), srv.URL, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, doc.Truncated)
	require.NotEmpty(t, doc.Blocks)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Render(ctx, srv.URL, time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var ne *core.NavigationError
	assert.False(t, errors.As(err, &ne))
}
