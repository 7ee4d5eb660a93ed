package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/render"
)

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"https://example.com":                 "example_com",
		"https://example.com/docs/intro/":     "example_com_docs_intro",
		"https://arxiv.org/pdf/2101.00001.pdf": "arxiv_org_pdf_2101_00001",
		"https://example.com:8080/a-b/c.html": "example_com_8080_a_b_c",
		"not a url":                           "not_a_url",
	}
	for in, want := range cases {
		assert.Equal(t, want, Filename(in), in)
	}
	assert.Len(t, Filename("https://example.com/"+strings.Repeat("x", 500)), maxNameLen)
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := New(dir)
	require.NoError(t, err)

	doc := &core.ExtractedDocument{Markdown: "# Hi\n", Metadata: core.DocumentMetadata{SourceURL: "https://example.com/hi"}}
	path, err := w.Write("https://example.com/hi", doc, &render.MarkdownRenderer{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example_com_hi.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Hi\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
