package extract

import "golang.org/x/net/html"

// Region is a candidate slice of a document described by its size
// counters. Node is set for web pages.
type Region struct {
	Node        *html.Node
	TextLen     int
	MarkupLen   int
	LinkTextLen int
	Blocks      int
	Headings    int
}

// Density is text per unit of markup.
func (r Region) Density() float64 {
	if r.MarkupLen <= 0 {
		return 0
	}
	return float64(r.TextLen) / float64(r.MarkupLen)
}

// LinkDensity is the share of text that sits inside links.
func (r Region) LinkDensity() float64 {
	if r.TextLen <= 0 {
		return 0
	}
	return float64(r.LinkTextLen) / float64(r.TextLen)
}

// Scorer rates how likely a region is to be the main content. Higher wins.
type Scorer interface {
	Score(r Region) float64
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(Region) float64

func (f ScorerFunc) Score(r Region) float64 { return f(r) }

// DensityScorer scores density × log-scale(text length) × (1 − link
// density). Regions that are mostly links score zero.
type DensityScorer struct {
	MaxLinkDensity float64
}

func (s DensityScorer) Score(r Region) float64 {
	ld := r.LinkDensity()
	if s.MaxLinkDensity > 0 && ld > s.MaxLinkDensity {
		return 0
	}
	return r.Density() * logScale(r.TextLen) * (1 - ld)
}

// logScale grows by one for every doubling of n past 100.
func logScale(n int) float64 {
	if n <= 0 {
		return 0
	}
	scale := 1.0
	for v := n; v > 100; v /= 2 {
		scale++
	}
	return scale
}
