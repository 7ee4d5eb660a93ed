// Package urls provides helpers to validate, resolve and normalize the
// URLs that flow through a read.
package urls

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

// Parse accepts only absolute http(s) URLs with a host.
func Parse(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q (must be http or https)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("missing host in %q", rawURL)
	}
	return parsed, nil
}

// HasExtension reports whether the URL path ends in ext, ignoring case,
// query and fragment.
func HasExtension(rawURL, ext string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(parsed.Path), ext)
}

// Resolve makes ref absolute against base. Empty refs, fragments,
// javascript: and data: URIs resolve to "".
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

// Normalize returns the canonical form of an http(s) URL: lower-case
// scheme and host, no default port, no fragment, no trailing slash except
// the root path. Unparsable input comes back unchanged.
func Normalize(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	switch port := parsed.Port(); {
	case port == "",
		port == "80" && parsed.Scheme == "http",
		port == "443" && parsed.Scheme == "https":
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		parsed.Host = host
	default:
		parsed.Host = net.JoinHostPort(host, port)
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
		parsed.RawPath = ""
	} else if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = strings.TrimSuffix(parsed.RawPath, "/")
	}
	return parsed.String()
}

// Stable rewrites a few well-known URL shapes to their canonical landing
// page: arXiv PDFs to the abstract page, IETF datatracker RFCs to the RFC
// Editor.
func Stable(u string) string {
	lower := strings.ToLower(u)
	for _, prefix := range []string{"https://arxiv.org/pdf/", "http://arxiv.org/pdf/"} {
		if strings.HasPrefix(lower, prefix) {
			id := strings.TrimSuffix(u[len(prefix):], ".pdf")
			return "https://arxiv.org/abs/" + id
		}
	}
	if strings.HasPrefix(lower, "https://datatracker.ietf.org/doc/html/rfc") {
		if idx := strings.LastIndex(lower, "/rfc"); idx >= 0 {
			return "https://www.rfc-editor.org/rfc/" + u[idx+1:]
		}
	}
	return u
}
