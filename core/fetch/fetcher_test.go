package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/smartreader/core"
)

func server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>" + r.UserAgent() + "</body></html>"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	})
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("X-Range", r.Header.Get("Range"))
		w.Write([]byte("%PDF-1.7\n" + strings.Repeat("0", 4096)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := server(t)
	f := New(Options{UserAgent: "test-agent"})

	res, err := f.Fetch(context.Background(), srv.URL+"/moved")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL+"/page", res.FinalURL)
	assert.Equal(t, srv.URL+"/moved", res.URL)
	assert.Contains(t, res.ContentType, "text/html")
	assert.Contains(t, string(res.Body), "test-agent")
}

func TestFetchErrorsAreNavigationErrors(t *testing.T) {
	srv := server(t)
	f := New(Options{MaxBytes: 1024})
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL+"/missing")
	var ne *core.NavigationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusNotFound, ne.Status)

	_, err = f.Fetch(ctx, srv.URL+"/big")
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(ctx, "ftp://example.com/file")
	require.ErrorAs(t, err, &ne)
	assert.Zero(t, ne.Status)

	_, err = f.Fetch(ctx, "http://127.0.0.1:1/unreachable")
	require.ErrorAs(t, err, &ne)
}

func TestHeadReportsStatusWithoutError(t *testing.T) {
	srv := server(t)
	f := New(Options{})

	res, err := f.Head(context.Background(), srv.URL+"/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = f.Head(context.Background(), srv.URL+"/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.Empty(t, res.Body)
}

func TestFetchPrefix(t *testing.T) {
	srv := server(t)
	res, err := New(Options{}).FetchPrefix(context.Background(), srv.URL+"/doc.pdf", 16)
	require.NoError(t, err)
	assert.Len(t, res.Body, 16)
	assert.True(t, strings.HasPrefix(string(res.Body), "%PDF-"))
}

func TestFetchPrefixSendsRange(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Range")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	_, err := New(Options{}).FetchPrefix(context.Background(), srv.URL, 1024)
	require.NoError(t, err)
	assert.Equal(t, "bytes=0-1023", got)
}
