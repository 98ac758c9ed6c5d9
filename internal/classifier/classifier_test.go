package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCrawlerMatchesEveryTokenInAnyCase(t *testing.T) {
	t.Parallel()

	c := New(nil)
	for _, token := range DefaultTokens {
		for _, variant := range []string{token, strings.ToUpper(token), strings.ToUpper(token[:1]) + token[1:]} {
			ua := "Mozilla/5.0 (compatible; " + variant + "/2.1; +http://example.com)"
			require.True(t, c.IsCrawler(ua), ua)
		}
	}
}

func TestIsCrawlerBrowsers(t *testing.T) {
	t.Parallel()

	browsers := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"",
		"   ",
	}
	for _, ua := range browsers {
		require.False(t, IsCrawler(ua), ua)
	}
}

func TestClassifyReturnsMatchedToken(t *testing.T) {
	t.Parallel()

	token, ok := New(nil).Classify("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	require.True(t, ok)
	require.Equal(t, "googlebot", token)

	token, ok = New(nil).Classify("facebookexternalhit/1.1")
	require.True(t, ok)
	require.Equal(t, "facebookexternalhit", token)
}

func TestGenericTokensFavorFalsePositives(t *testing.T) {
	t.Parallel()

	// A browser extension advertising "bot" is classified as a crawler.
	require.True(t, IsCrawler("Mozilla/5.0 Chrome/124.0 ChatBotHelper/1.0"))
}

func TestNewCustomTokens(t *testing.T) {
	t.Parallel()

	c := New([]string{" MyAuditor ", "myauditor", ""}, "Preview-Agent")
	require.Equal(t, []string{"myauditor", "preview-agent"}, c.Tokens())
	require.True(t, c.IsCrawler("preview-agent/1.0"))
	require.False(t, c.IsCrawler("Googlebot/2.1"))
}
