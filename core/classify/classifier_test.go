package classify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/fetch"
)

// stubProber records calls and returns canned answers.
type stubProber struct {
	head      *core.Resource
	headErr   error
	prefix    *core.Resource
	prefixErr error
	calls     int
}

func (s *stubProber) Head(context.Context, string) (*core.Resource, error) {
	s.calls++
	return s.head, s.headErr
}

func (s *stubProber) FetchPrefix(context.Context, string, int) (*core.Resource, error) {
	s.calls++
	return s.prefix, s.prefixErr
}

var errDown = errors.New("connection refused")

func TestPDFExtensionNeedsNoNetwork(t *testing.T) {
	p := &stubProber{headErr: errDown, prefixErr: errDown}
	c := New(p, Options{})
	for _, u := range []string{
		"https://unreachable.invalid/paper.pdf",
		"https://example.com/files/REPORT.PDF?download=1",
		"http://example.com/a.pdf#page=3",
	} {
		kind, err := c.Classify(context.Background(), u, "", nil)
		require.NoError(t, err, u)
		assert.Equal(t, core.KindPDF, kind, u)
	}
	assert.Zero(t, p.calls)
}

func TestHints(t *testing.T) {
	p := &stubProber{headErr: errDown, prefixErr: errDown}
	c := New(p, Options{})
	ctx := context.Background()

	kind, err := c.Classify(ctx, "https://example.com/x", "application/pdf; qs=1", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindPDF, kind)

	kind, err = c.Classify(ctx, "https://example.com/x", "text/html; charset=utf-8", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindWebPage, kind)

	kind, err = c.Classify(ctx, "https://example.com/x", "", []byte("\xef\xbb\xbf \n%PDF-1.4\n"))
	require.NoError(t, err)
	assert.Equal(t, core.KindPDF, kind)

	kind, err = c.Classify(ctx, "https://example.com/x", "", []byte("<!doctype html><p>%PDF- mentioned</p>"))
	require.NoError(t, err)
	assert.Equal(t, core.KindWebPage, kind)
	assert.Zero(t, p.calls)
}

func TestHeadProbe(t *testing.T) {
	cases := []struct {
		name string
		head *core.Resource
		want core.ResourceKind
	}{
		{"pdf type", &core.Resource{StatusCode: 200, ContentType: "application/pdf"}, core.KindPDF},
		{"html type", &core.Resource{StatusCode: 200, ContentType: "text/html"}, core.KindWebPage},
		{"no type", &core.Resource{StatusCode: 200}, core.KindWebPage},
		{"redirected to pdf", &core.Resource{StatusCode: 200, ContentType: "application/octet-stream", FinalURL: "https://cdn.example.com/x.pdf"}, core.KindPDF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubProber{head: tc.head, prefixErr: errDown}
			kind, err := New(p, Options{}).Classify(context.Background(), "https://example.com/doc", "", nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestAmbiguousProbeFallsBackToMagic(t *testing.T) {
	ctx := context.Background()

	p := &stubProber{
		head:   &core.Resource{StatusCode: 405},
		prefix: &core.Resource{StatusCode: 206, Body: []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3")},
	}
	kind, err := New(p, Options{}).Classify(ctx, "https://example.com/download?id=7", "", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindPDF, kind)
	assert.Equal(t, 2, p.calls)

	p = &stubProber{
		headErr: errDown,
		prefix:  &core.Resource{StatusCode: 200, Body: []byte("<html>")},
	}
	kind, err = New(p, Options{}).Classify(ctx, "https://example.com/download?id=7", "", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindWebPage, kind)
}

func TestUnreachable(t *testing.T) {
	p := &stubProber{headErr: errDown, prefixErr: errDown}
	kind, err := New(p, Options{}).Classify(context.Background(), "https://down.example.com/", "", nil)
	assert.Equal(t, core.KindUnknown, kind)

	var ce *core.ClassificationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "https://down.example.com/", ce.URL)
	assert.ErrorIs(t, err, errDown)
}

func TestInvalidURL(t *testing.T) {
	_, err := New(&stubProber{}, Options{}).Classify(context.Background(), "mailto:someone@example.com", "", nil)
	var ne *core.NavigationError
	assert.ErrorAs(t, err, &ne)
}

func TestClassifyAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paper":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte("%PDF-1.5\n..."))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		}
	}))
	defer srv.Close()

	c := New(fetch.New(fetch.Options{}), Options{})
	kind, err := c.Classify(context.Background(), srv.URL+"/paper", "", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindPDF, kind)

	kind, err = c.Classify(context.Background(), srv.URL+"/post", "", nil)
	require.NoError(t, err)
	assert.Equal(t, core.KindWebPage, kind)
}
