// Package sources maps referrer URLs to canonical traffic-source tags.
package sources

import (
	"net/url"
	"strings"
)

// Source tags for traffic with no matching platform entry.
const (
	TagDirect   = "direct"
	TagReferral = "referral"
)

type sourceEntry struct {
	tag        string
	signatures []string
}

// Ordered platform table, first match wins. A trailing dot marks a
// brand name matched across TLDs and subdomains; bare entries are
// whole domains matched exactly or as a dot-anchored suffix.
var knownSources = []sourceEntry{
	{tag: "google", signatures: []string{"google."}},
	{tag: "facebook", signatures: []string{"facebook.", "fb.com", "fb.me"}},
	{tag: "twitter", signatures: []string{"twitter.", "x.com", "t.co"}},
	{tag: "instagram", signatures: []string{"instagram."}},
	{tag: "linkedin", signatures: []string{"linkedin.", "lnkd.in"}},
	{tag: "youtube", signatures: []string{"youtube.", "youtu.be"}},
	{tag: "pinterest", signatures: []string{"pinterest."}},
	{tag: "reddit", signatures: []string{"reddit."}},
}

// Attribute classifies a referrer URL into a source tag. Missing,
// malformed or same-host referrers count as direct traffic; referrers
// from unrecognized hosts count as generic referrals.
func Attribute(referrerURL, siteURL string) string {
	referrerURL = strings.TrimSpace(referrerURL)
	if referrerURL == "" {
		return TagDirect
	}

	refHost := hostOf(referrerURL)
	if refHost == "" {
		return TagDirect
	}

	if siteHost := hostOf(siteURL); siteHost != "" && refHost == siteHost {
		return TagDirect
	}

	for _, entry := range knownSources {
		for _, sig := range entry.signatures {
			if matchesHost(refHost, sig) {
				return entry.tag
			}
		}
	}
	return TagReferral
}

// matchesHost anchors signature matching at label boundaries. Short
// domains like t.co or x.com must never match inside unrelated hosts
// (restaurant.com, netflix.com).
func matchesHost(host, sig string) bool {
	if strings.HasSuffix(sig, ".") {
		return strings.HasPrefix(host, sig) || strings.Contains(host, "."+sig)
	}
	return host == sig || strings.HasSuffix(host, "."+sig)
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
