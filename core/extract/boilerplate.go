package extract

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// boilerplateWords are class/id words that mark page furniture. They are
// matched against whole words so "download" never matches "ad".
var boilerplateWords = map[string]bool{
	"sidebar": true, "menu": true, "nav": true, "navbar": true, "navigation": true,
	"breadcrumb": true, "breadcrumbs": true, "cookie": true, "cookies": true,
	"consent": true, "gdpr": true, "banner": true, "advert": true, "advertisement": true,
	"ad": true, "ads": true, "sponsored": true, "social": true, "share": true,
	"sharing": true, "comment": true, "comments": true, "related": true,
	"widget": true, "popup": true, "modal": true, "newsletter": true,
	"subscribe": true, "promo": true, "footer": true, "masthead": true, "skip": true,
}

var boilerplateRoles = map[string]bool{
	"navigation": true, "banner": true, "contentinfo": true,
	"complementary": true, "search": true,
}

// isBoilerplate checks if an element is likely page furniture. inArticle
// tells whether an <article> or <main> encloses it, which turns <header>
// into content. bodyText is the visible text length of the whole page:
// weak signals (class/id words, a stray <header>) never discard a wrapper
// that holds the main content or most of the page text.
func isBoilerplate(n *html.Node, inArticle bool, bodyText int) bool {
	if n.Type != html.ElementNode {
		return false
	}
	weak := false
	switch n.Data {
	case "body", "main", "article":
		return false
	case "nav", "aside", "footer":
		return true
	case "header":
		weak = !inArticle
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "role":
			role := strings.ToLower(strings.TrimSpace(a.Val))
			if role == "main" || role == "article" {
				return false
			}
			if boilerplateRoles[role] {
				return true
			}
		case "class", "id":
			for _, w := range words(a.Val) {
				if boilerplateWords[w] {
					weak = true
				}
			}
		}
	}
	return weak && !holdsContent(n, bodyText)
}

// holdsContent reports whether n wraps a main/article landmark or more
// than half of the page text.
func holdsContent(n *html.Node, bodyText int) bool {
	return holdsLandmark(n) || (bodyText > 0 && 2*visibleText(n) > bodyText)
}

func holdsLandmark(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && opensArticle(c) {
			return true
		}
		if holdsLandmark(c) {
			return true
		}
	}
	return false
}

// visibleText counts non-space text characters outside scripts and styles.
func visibleText(n *html.Node) int {
	switch n.Type {
	case html.TextNode:
		return len(strings.TrimSpace(n.Data))
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" || n.Data == "noscript" || n.Data == "template" {
			return 0
		}
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += visibleText(c)
	}
	return total
}

// opensArticle reports elements after which <header> is content.
func opensArticle(n *html.Node) bool {
	if n.Data == "article" || n.Data == "main" {
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "role" && strings.EqualFold(a.Val, "main") {
			return true
		}
	}
	return false
}

// words splits a class or id value into lower-case alphanumeric words,
// so "post-sidebar__left" yields post, sidebar, left.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
