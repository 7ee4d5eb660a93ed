// Package output handles file naming and writing for SmartReader results.
// Filenames are derived from the source URL (e.g., example_com_docs_intro.md)
// so that reading the same URL twice overwrites the earlier result.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/smartreader/core"
)

// maxNameLen keeps generated names under common filesystem limits.
const maxNameLen = 200

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Write renders doc with r and stores it under a name derived from rawURL.
// The file is written to a temporary name first and renamed into place.
func (w *Writer) Write(rawURL string, doc *core.ExtractedDocument, r core.Renderer) (string, error) {
	data, err := r.Render(doc)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", r.Extension(), err)
	}

	path := filepath.Join(w.OutputDir, Filename(rawURL)+r.Extension())
	tmp, err := os.CreateTemp(w.OutputDir, ".smartreader-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Filename converts a URL into a flat filename.
// Example: https://example.com/docs/intro → example_com_docs_intro
// A trailing ".pdf" or ".html" on the path is dropped.
func Filename(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return truncate(sanitize(rawURL))
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.Trim(parsed.Path, "/")
	for _, ext := range []string{".pdf", ".html", ".htm"} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			path = path[:len(path)-len(ext)]
			break
		}
	}
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return truncate(strings.Join(parts, "_"))
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func truncate(name string) string {
	if len(name) > maxNameLen {
		return name[:maxNameLen]
	}
	return name
}
