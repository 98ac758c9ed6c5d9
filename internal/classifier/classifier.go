// Package classifier decides whether a request comes from a search engine,
// social preview bot or SEO audit tool.
//
// Matching is a case-insensitive substring test against a token list. The
// generic tokens "bot", "spider" and "crawler" are included on purpose: a
// human served the crawler HTML still lands on the SPA through its redirects,
// while a crawler served a redirect loses the page's metadata.
package classifier

import "strings"

// DefaultTokens is the built-in crawler token list.
var DefaultTokens = []string{
	// search engines
	"googlebot",
	"google-inspectiontool",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"sogou",
	"exabot",
	"applebot",
	// social previews
	"facebookexternalhit",
	"facebot",
	"twitterbot",
	"linkedinbot",
	"whatsapp",
	"slackbot",
	"telegrambot",
	"discordbot",
	"pinterest",
	"redditbot",
	"embedly",
	"quora link preview",
	"showyoubot",
	"outbrain",
	"vkshare",
	"w3c_validator",
	// SEO audit tools
	"semrushbot",
	"ahrefsbot",
	"mj12bot",
	"dotbot",
	"rogerbot",
	"screaming frog",
	"chrome-lighthouse",
	"lighthouse",
	// generic
	"bot",
	"spider",
	"crawler",
}

// Classifier matches user agents against a fixed token list.
type Classifier struct {
	tokens []string
}

// New builds a Classifier. Empty base falls back to DefaultTokens; extra
// tokens are appended. Tokens are lower-cased and deduplicated.
func New(base []string, extra ...string) *Classifier {
	if len(base) == 0 {
		base = DefaultTokens
	}
	seen := make(map[string]struct{}, len(base)+len(extra))
	c := &Classifier{}
	for _, raw := range append(append([]string{}, base...), extra...) {
		token := strings.ToLower(strings.TrimSpace(raw))
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		c.tokens = append(c.tokens, token)
	}
	return c
}

// Classify returns the first matching token, if any.
func (c *Classifier) Classify(userAgent string) (string, bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return "", false
	}
	for _, token := range c.tokens {
		if strings.Contains(ua, token) {
			return token, true
		}
	}
	return "", false
}

// IsCrawler reports whether userAgent contains a crawler token.
func (c *Classifier) IsCrawler(userAgent string) bool {
	_, ok := c.Classify(userAgent)
	return ok
}

// Tokens returns a copy of the active token list.
func (c *Classifier) Tokens() []string {
	out := make([]string, len(c.tokens))
	copy(out, c.tokens)
	return out
}

var defaultClassifier = New(nil)

// IsCrawler classifies userAgent with DefaultTokens.
func IsCrawler(userAgent string) bool {
	return defaultClassifier.IsCrawler(userAgent)
}
