// Package visitors resolves the tracking subject for each incoming
// request. Identity resolution never fails: every request maps to a
// system, admin, authenticated or anonymous identity, minting a fresh
// anonymous token when no valid one is presented.
package visitors

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// Identity kinds, in resolution priority order.
const (
	KindSystem        = "system"
	KindAdmin         = "admin"
	KindAuthenticated = "authenticated"
	KindAnonymous     = "anonymous"
)

// TokenPrefix precedes every anonymous visitor token.
const TokenPrefix = "visitor_"

const tokenRandomLength = 32

var tokenPattern = regexp.MustCompile(`^visitor_[A-Za-z0-9]{32}$`)

// Identity is the resolved tracking subject for one request.
type Identity struct {
	Kind string
	// ID is the user id for authenticated identities and the token for
	// anonymous ones. Empty for system and admin.
	ID string
	// Minted is true when ID is a freshly generated anonymous token
	// that has not been persisted client-side yet.
	Minted bool
}

// IsSystem reports whether the identity must never be counted.
func (i Identity) IsSystem() bool {
	return i.Kind == KindSystem
}

// IsAdmin reports whether the identity belongs to a privileged user.
func (i Identity) IsAdmin() bool {
	return i.Kind == KindAdmin
}

// Request carries the identity-relevant facts about one incoming
// request, extracted by the transport layer.
type Request struct {
	// SystemContext is true for cron, internal API and other
	// non-interactive execution contexts.
	SystemContext bool
	// IsAdmin is true when the caller holds administrative privilege.
	IsAdmin bool
	// UserID is set when the caller is authenticated.
	UserID string
	// PresentedToken is the anonymous token from the visitor cookie,
	// empty when none was sent.
	PresentedToken string
}

// Resolve classifies the request into an identity. Decision order:
// system context, untracked admin, authenticated user, valid presented
// token, fresh mint. trackAdmins lets operators opt privileged users
// into normal tracking.
func Resolve(req Request, trackAdmins bool) Identity {
	if req.SystemContext {
		return Identity{Kind: KindSystem}
	}
	if req.IsAdmin && !trackAdmins {
		return Identity{Kind: KindAdmin}
	}
	if req.UserID != "" {
		return Identity{Kind: KindAuthenticated, ID: req.UserID}
	}
	if ValidToken(req.PresentedToken) {
		return Identity{Kind: KindAnonymous, ID: req.PresentedToken}
	}
	return Identity{Kind: KindAnonymous, ID: MintToken(), Minted: true}
}

// ValidToken reports whether a presented token matches the issued
// format. Forged or truncated values are rejected so a fresh token
// gets minted instead.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// MintToken generates a new anonymous visitor token.
func MintToken() string {
	return fmt.Sprintf("%s%s", TokenPrefix, generateRandomToken(tokenRandomLength))
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[randInt(len(charset))]
	}
	return string(b)
}

// randInt returns a cryptographically secure random int in [0, max)
func randInt(max int) int {
	var buf [1]byte
	_, _ = rand.Read(buf[:])
	return int(buf[0]) % max
}
