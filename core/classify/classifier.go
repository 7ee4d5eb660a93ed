// Package classify decides whether a URL points to a web page or a PDF.
//
// Cheap signals are tried first: the URL extension, then a declared
// content type or sniffed bytes supplied by the caller, then a HEAD probe,
// and finally a small ranged GET checked for the PDF magic number.
// Anything that is not positively a PDF is read as a web page.
package classify

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/urls"
)

// Options configures a Classifier. Zero values take the defaults.
type Options struct {
	ProbeTimeout time.Duration
	SniffBytes   int
}

func (o *Options) defaults() {
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 10 * time.Second
	}
	if o.SniffBytes <= 0 {
		o.SniffBytes = 1024
	}
}

// Classifier implements core.Classifier over a core.Prober.
type Classifier struct {
	prober core.Prober
	opts   Options
}

func New(prober core.Prober, opts Options) *Classifier {
	opts.defaults()
	return &Classifier{prober: prober, opts: opts}
}

var (
	pdfMagic = []byte("%PDF-")
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// IsPDF reports whether data starts like a PDF file.
func IsPDF(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n\f\x00")
	return bytes.HasPrefix(trimmed, pdfMagic) || mimetype.Detect(data).Is("application/pdf")
}

func isPDFType(ct string) bool {
	return mimetype.EqualsAny(ct, "application/pdf", "application/x-pdf")
}

func isHTMLType(ct string) bool {
	return mimetype.EqualsAny(ct, "text/html", "application/xhtml+xml")
}

// Classify returns the kind of the resource at url. declaredType and
// sniffed are optional hints the caller may already hold. Only a URL
// that cannot be reached at all yields *core.ClassificationError.
func (c *Classifier) Classify(ctx context.Context, url, declaredType string, sniffed []byte) (core.ResourceKind, error) {
	if _, err := urls.Parse(url); err != nil {
		return core.KindUnknown, &core.NavigationError{URL: url, Err: err}
	}
	logger := zerolog.Ctx(ctx).With().Str("url", url).Logger()

	if urls.HasExtension(url, ".pdf") {
		logger.Debug().Str("by", "extension").Msg("classified as pdf")
		return core.KindPDF, nil
	}
	switch {
	case isPDFType(declaredType):
		return core.KindPDF, nil
	case isHTMLType(declaredType):
		return core.KindWebPage, nil
	}
	if len(sniffed) > 0 {
		if IsPDF(sniffed) {
			return core.KindPDF, nil
		}
		return core.KindWebPage, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	head, probeErr := c.prober.Head(probeCtx, url)
	cancel()
	if probeErr == nil {
		if head.StatusCode < 400 {
			switch {
			case isPDFType(head.ContentType), urls.HasExtension(head.FinalURL, ".pdf"):
				logger.Debug().Str("by", "head").Msg("classified as pdf")
				return core.KindPDF, nil
			case head.ContentType == "", isHTMLType(head.ContentType):
				return core.KindWebPage, nil
			}
		}
		logger.Debug().Int("status", head.StatusCode).Str("content_type", head.ContentType).Msg("head probe ambiguous")
	} else {
		logger.Debug().Err(probeErr).Msg("head probe failed")
	}

	probeCtx, cancel = context.WithTimeout(ctx, c.opts.ProbeTimeout)
	prefix, err := c.prober.FetchPrefix(probeCtx, url, c.opts.SniffBytes)
	cancel()
	if err != nil {
		if probeErr != nil {
			return core.KindUnknown, &core.ClassificationError{URL: url, Err: errors.Join(probeErr, err)}
		}
		logger.Debug().Err(err).Msg("prefix fetch failed, assuming web page")
		return core.KindWebPage, nil
	}
	if IsPDF(prefix.Body) || isPDFType(prefix.ContentType) {
		logger.Debug().Str("by", "magic").Msg("classified as pdf")
		return core.KindPDF, nil
	}
	return core.KindWebPage, nil
}
