package entities

import (
	"regexp"
	"strings"
)

const MaxSlugLength = 64

var (
	validSlugRe   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9_-]`)
	slugDashesRe  = regexp.MustCompile(`-+`)
)

// ClientContact holds the contact handles shown by the mini-app.
type ClientContact struct {
	Telegram string `json:"telegram"`
}

// ClientConfig is the per-client mini-app configuration document.
type ClientConfig struct {
	Title           string        `json:"title"`
	Subtitle        string        `json:"subtitle"`
	Accent          string        `json:"accent"`
	Contact         ClientContact `json:"contact"`
	ButtonText      string        `json:"buttonText"`
	MessageTemplate string        `json:"messageTemplate"`
}

// Catalog is the empty product catalog written for new clients.
type Catalog struct {
	Products []any `json:"products"`
}

// BaseClientConfig returns the configuration written for a freshly scaffolded client.
func BaseClientConfig() ClientConfig {
	return ClientConfig{
		Title:           "Shop · Client",
		Subtitle:        "Custom Telegram mini-app",
		Accent:          "#79c3ff",
		Contact:         ClientContact{Telegram: "YourAccount"},
		ButtonText:      "Prepare message",
		MessageTemplate: "Hello, I am interested in {{name}} (ID {{id}}) priced at {{price}}.",
	}
}

// BaseCatalog returns an empty catalog.
func BaseCatalog() Catalog {
	return Catalog{Products: []any{}}
}

// ValidSlug checks if a client slug is safe to use as a folder name
func ValidSlug(s string) bool {
	if s == "" || len(s) > MaxSlugLength {
		return false
	}
	return validSlugRe.MatchString(s)
}

// SanitizeSlug lower-cases s, turns anything outside [a-z0-9_-] into dashes
// and collapses/trims them. It returns "" when nothing usable is left.
func SanitizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	s = slugDashesRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		s = strings.Trim(s[:MaxSlugLength], "-")
	}
	return s
}
