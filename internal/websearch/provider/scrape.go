package provider

import (
	"net/url"
	"strings"
)

// resolveLink turns a results-page href into an absolute target URL.
// Redirect wrappers carry the real target in a query parameter (Google uses
// "q" on /url, DuckDuckGo uses "uddg" on /l/).
func resolveLink(base, href string, redirectParams ...string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	for _, p := range redirectParams {
		if target := u.Query().Get(p); target != "" && isHTTP(target) {
			return target
		}
	}

	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(u).String()
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
