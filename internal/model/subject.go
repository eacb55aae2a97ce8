// Package model defines the domain types shared across the research pipeline,
// the result cache, and the report service.
package model

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeSubject derives the cache subject key from a raw company URL or
// domain. The same input always yields the same key: scheme, a leading
// "www." label, port, path, query and fragment are dropped and the host is
// lowercased. Returns "" when no host can be recovered.
func NormalizeSubject(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	host := ""
	if u, err := url.Parse(s); err == nil {
		host = u.Hostname()
	}
	if host == "" {
		// Fall back to manual stripping for inputs url.Parse rejects.
		host = s[strings.Index(s, "://")+3:]
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
	}

	host = strings.TrimPrefix(host, "www.")
	host = strings.Trim(host, ". ")
	return host
}

// DisplayName turns a subject key into a human-readable company name
// ("acme-widgets.com" → "Acme Widgets").
func DisplayName(subject string) string {
	label := subject
	if i := strings.Index(label, "."); i > 0 {
		label = label[:i]
	}
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	if label == "" {
		return ""
	}
	return cases.Title(language.English).String(label)
}
