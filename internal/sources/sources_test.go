package sources_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storepulse/internal/sources"
)

func TestAttribute(t *testing.T) {
	siteURL := "https://shop.example.com"

	tests := []struct {
		name     string
		referrer string
		expected string
	}{
		{"no referrer", "", sources.TagDirect},
		{"whitespace referrer", "   ", sources.TagDirect},
		{"same host", "https://shop.example.com/products/mug", sources.TagDirect},
		{"same host with www", "https://www.shop.example.com/", sources.TagDirect},
		{"google search", "https://www.google.com/search?q=mugs", "google"},
		{"google country domain", "https://google.co.uk/url", "google"},
		{"facebook", "https://l.facebook.com/l.php?u=x", "facebook"},
		{"facebook short domain", "https://fb.com/somepage", "facebook"},
		{"twitter", "https://twitter.com/status/1", "twitter"},
		{"x dot com", "https://x.com/status/1", "twitter"},
		{"twitter shortener", "https://t.co/abc123", "twitter"},
		{"instagram", "https://l.instagram.com/", "instagram"},
		{"linkedin", "https://www.linkedin.com/feed/", "linkedin"},
		{"linkedin shortener", "https://lnkd.in/xyz", "linkedin"},
		{"youtube", "https://www.youtube.com/watch?v=abc", "youtube"},
		{"youtube shortener", "https://youtu.be/abc", "youtube"},
		{"pinterest", "https://pinterest.com/pin/1", "pinterest"},
		{"reddit", "https://old.reddit.com/r/coffee", "reddit"},
		{"unknown blog", "https://coffeelovers.blog/best-mugs", sources.TagReferral},
		{"news site", "https://news.example.org/article", sources.TagReferral},
		{"host ending in t dot co label", "https://restaurant.com/menu", sources.TagReferral},
		{"host ending in x dot com label", "https://netflix.com/browse", sources.TagReferral},
		{"another host ending in x", "https://fedex.com/tracking", sources.TagReferral},
		{"subdomain of t dot co", "https://link.t.co/abc", "twitter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sources.Attribute(tt.referrer, siteURL))
		})
	}
}

func TestAttributeMalformedInput(t *testing.T) {
	t.Run("malformed referrer degrades to direct", func(t *testing.T) {
		assert.Equal(t, sources.TagDirect, sources.Attribute("htt p://bro ken", "https://shop.example.com"))
		assert.Equal(t, sources.TagDirect, sources.Attribute("not a url at all", "https://shop.example.com"))
	})

	t.Run("missing site url still classifies platforms", func(t *testing.T) {
		assert.Equal(t, "google", sources.Attribute("https://google.com/search", ""))
		assert.Equal(t, sources.TagReferral, sources.Attribute("https://unknown.example/", ""))
	})
}
