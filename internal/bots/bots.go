// Package bots classifies requests as automated traffic before any
// counter is touched. Classification is a pure function of request
// headers against an embedded signature database.
package bots

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed database/bots.yml
var databaseFiles embed.FS

// SignatureGroup is one category of deny-list entries.
type SignatureGroup struct {
	Category   string   `yaml:"category"`
	Signatures []string `yaml:"signatures"`
}

// Client carries the request headers relevant to bot detection.
type Client struct {
	// UserAgent is the declared client identity string.
	UserAgent string
	// Accept is the declared accepted-content-types header.
	Accept string
	// SecCHUA is the Sec-CH-UA client hint, when present.
	SecCHUA string
}

var (
	signatures []string
	once       sync.Once
)

func loadSignatures() []string {
	once.Do(func() {
		data, err := databaseFiles.ReadFile("database/bots.yml")
		if err != nil {
			fmt.Printf("Error reading bots.yml: %v\n", err)
			return
		}
		var groups []SignatureGroup
		if err := yaml.Unmarshal(data, &groups); err != nil {
			fmt.Printf("Error parsing bots.yml: %v\n", err)
			return
		}
		for _, group := range groups {
			for _, sig := range group.Signatures {
				signatures = append(signatures, strings.ToLower(sig))
			}
		}
	})
	return signatures
}

// IsBot reports whether the client looks automated. A request is
// flagged when the user agent is empty or matches the deny-list, when
// the Accept header is missing or excludes markup entirely, or when a
// client hint declares a headless agent.
func IsBot(client Client) bool {
	ua := strings.ToLower(strings.TrimSpace(client.UserAgent))
	if ua == "" {
		return true
	}

	for _, sig := range loadSignatures() {
		if strings.Contains(ua, sig) {
			return true
		}
	}

	accept := strings.ToLower(strings.TrimSpace(client.Accept))
	if accept == "" {
		return true
	}
	if !strings.Contains(accept, "*/*") && !strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/xhtml") {
		return true
	}

	if strings.Contains(strings.ToLower(client.SecCHUA), "headless") {
		return true
	}

	return false
}
