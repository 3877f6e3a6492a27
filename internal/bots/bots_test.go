package bots_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storepulse/internal/bots"
)

const browserAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

func TestIsBot(t *testing.T) {
	tests := []struct {
		name   string
		client bots.Client
		bot    bool
	}{
		{
			name: "regular desktop browser",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
				Accept:    browserAccept,
			},
			bot: false,
		},
		{
			name: "googlebot crawler",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
				Accept:    browserAccept,
			},
			bot: true,
		},
		{
			name: "crawler signature is case insensitive",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (compatible; GOOGLEBOT/2.1)",
				Accept:    browserAccept,
			},
			bot: true,
		},
		{
			name: "social preview fetcher",
			client: bots.Client{
				UserAgent: "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)",
				Accept:    browserAccept,
			},
			bot: true,
		},
		{
			name: "seo crawler",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (compatible; AhrefsBot/7.0; +http://ahrefs.com/robot/)",
				Accept:    browserAccept,
			},
			bot: true,
		},
		{
			name:   "scripted http client",
			client: bots.Client{UserAgent: "curl/8.4.0", Accept: "*/*"},
			bot:    true,
		},
		{
			name: "headless browser signature",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/120.0 Safari/537.36",
				Accept:    browserAccept,
			},
			bot: true,
		},
		{
			name: "performance audit tool",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Chrome-Lighthouse",
				Accept:    browserAccept,
			},
			bot: true,
		},
		{
			name:   "empty user agent",
			client: bots.Client{UserAgent: "", Accept: browserAccept},
			bot:    true,
		},
		{
			name:   "missing accept header",
			client: bots.Client{UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0", Accept: ""},
			bot:    true,
		},
		{
			name:   "accept header without markup",
			client: bots.Client{UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0", Accept: "image/avif,image/webp"},
			bot:    true,
		},
		{
			name:   "wildcard accept is allowed",
			client: bots.Client{UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0", Accept: "*/*"},
			bot:    false,
		},
		{
			name:   "wildcard accept alongside image types is allowed",
			client: bots.Client{UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0", Accept: "image/webp,*/*"},
			bot:    false,
		},
		{
			name: "headless client hint",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
				Accept:    browserAccept,
				SecCHUA:   `"HeadlessChrome";v="120", "Chromium";v="120"`,
			},
			bot: true,
		},
		{
			name: "mobile safari",
			client: bots.Client{
				UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile/15E148 Safari/604.1",
				Accept:    browserAccept,
			},
			bot: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.bot, bots.IsBot(tt.client))
		})
	}
}
