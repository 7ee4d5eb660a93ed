// Package core defines the shared document model and the pipeline
// interfaces for SmartReader.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"time"
)

// Fetcher retrieves the full body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Resource, error)
}

// Prober answers cheap questions about a URL before committing to a
// full acquisition.
type Prober interface {
	// Head returns status and content type without a body.
	Head(ctx context.Context, url string) (*Resource, error)
	// FetchPrefix returns at most n leading bytes of the body.
	FetchPrefix(ctx context.Context, url string, n int) (*Resource, error)
}

// Classifier decides whether a URL is a web page or a PDF.
type Classifier interface {
	Classify(ctx context.Context, url, declaredType string, sniffed []byte) (ResourceKind, error)
}

// PageRenderer loads a web page, lets it settle, and captures its DOM.
// Running out of time is not an error: the document comes back with
// Truncated set.
type PageRenderer interface {
	Render(ctx context.Context, url string, timeout time.Duration) (*RenderedDocument, error)
	Close() error
}

// PDFExtractor turns PDF bytes into blocks.
type PDFExtractor interface {
	Extract(ctx context.Context, url string, data []byte) (*RenderedDocument, error)
}

// Distiller keeps the main content of a document. A *ExtractionFailure
// error comes back together with fallback blocks.
type Distiller interface {
	Distill(doc *RenderedDocument) ([]ContentBlock, error)
}

// Normalizer converts blocks into Markdown (the canonical format).
type Normalizer interface {
	Normalize(blocks []ContentBlock) (string, error)
}

// MetadataExtractor reads document-level facts and the reference list.
type MetadataExtractor interface {
	Metadata(doc *RenderedDocument) DocumentMetadata
	References(doc *RenderedDocument) []Reference
}

// Renderer converts an extracted document into a final output format.
type Renderer interface {
	Render(doc *ExtractedDocument) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
