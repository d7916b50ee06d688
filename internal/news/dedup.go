package news

import (
	"net/url"
	"sort"
	"strings"
)

// Deduplicator remembers canonical article URLs. It is used by a single
// aggregation run and is not safe for concurrent use.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates a Deduplicator with the given estimated capacity.
func NewDeduplicator(estimatedCapacity int) *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{}, estimatedCapacity)}
}

// MarkSeen records a URL and reports whether it was new.
func (d *Deduplicator) MarkSeen(rawURL string) bool {
	key := CanonicalizeURL(rawURL)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// CanonicalizeURL normalizes an article URL for comparison:
// - lowercases scheme and host
// - removes fragment and default ports
// - sorts query parameters
// - removes trailing slash (except root)
func CanonicalizeURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
