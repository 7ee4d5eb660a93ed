package core

import (
	"regexp"
	"strings"
)

var (
	imageSyntax  = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkSyntax   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	emphasis     = regexp.MustCompile(`(\*{1,3}|_{2,3})([^*_]+)(\*{1,3}|_{2,3})`)
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	markdownEsc  = regexp.MustCompile(`\\([\\\x60*_{}\[\]()#+\-.!|>~])`)
	spaceRunExpr = regexp.MustCompile(`\s+`)
)

// StripInline removes inline Markdown formatting (links, emphasis, code
// spans, escapes) and keeps the visible text.
func StripInline(s string) string {
	s = imageSyntax.ReplaceAllString(s, "$1")
	s = linkSyntax.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "$2")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = markdownEsc.ReplaceAllString(s, "$1")
	return CollapseSpace(s)
}

// CollapseSpace trims s and folds every whitespace run into one space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRunExpr.ReplaceAllString(s, " "))
}
