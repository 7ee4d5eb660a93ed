package dom

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/smartreader/core"
)

// SourceMetadata collects what the page says about itself: <title>, every
// <meta> with a name, property or itemprop, <html lang>, the canonical
// link and the article fields of any JSON-LD blocks (under "jsonld:" keys).
func SourceMetadata(doc *goquery.Document) core.Meta {
	meta := core.Meta{}

	meta.Add("title", doc.Find("title").First().Text())
	meta.Add("lang", doc.Find("html").First().AttrOr("lang", ""))
	meta.Add("canonical", doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""))

	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		content := s.AttrOr("content", "")
		for _, key := range []string{"name", "property", "itemprop"} {
			if k := s.AttrOr(key, ""); k != "" {
				meta.Add(k, content)
				return
			}
		}
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		addJSONLD(meta, v)
	})

	return meta
}

// addJSONLD walks a decoded JSON-LD value and records headline, author and
// datePublished of every object that has them. @graph arrays are followed.
func addJSONLD(meta core.Meta, v any) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			addJSONLD(meta, item)
		}
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			addJSONLD(meta, graph)
		}
		if s, ok := t["headline"].(string); ok {
			meta.Add("jsonld:headline", s)
		}
		if s, ok := t["datePublished"].(string); ok {
			meta.Add("jsonld:datePublished", s)
		}
		for _, name := range authorNames(t["author"]) {
			meta.Add("jsonld:author", name)
		}
	}
}

func authorNames(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case map[string]any:
		if s, ok := t["name"].(string); ok {
			return []string{strings.TrimSpace(s)}
		}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, authorNames(item)...)
		}
		return out
	}
	return nil
}
