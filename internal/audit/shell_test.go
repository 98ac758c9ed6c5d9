package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellDetector(t *testing.T) {
	t.Parallel()

	d := NewShellDetector(0)
	assert.Equal(t, DefaultShellThreshold, d.Threshold)

	cases := []struct {
		name string
		body string
		want bool
	}{
		{name: "empty", body: "  ", want: true},
		{name: "empty root", body: `<html><body><div id="root"></div><script src="/app.js"></script></body></html>`, want: true},
		{name: "rendered root", body: `<html><body><div id="root"><h1>Hotel X</h1></div></body></html>`, want: false},
		{name: "script heavy", body: `<html><script>var a=1;var b=2;</script><p>t</p></html>`, want: true},
		{name: "static page", body: `<html><head><title>Eat</title></head><body><h1>Eat</h1><p>Restaurants in Cambutal</p></body></html>`, want: false},
		{name: "large script page", body: `<html><script>` + strings.Repeat("x", 4096) + `</script></html>`, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, d.LooksLikeShell([]byte(tc.body)))
		})
	}
}

func TestScriptCoverageUnclosedTag(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, scriptCoverage([]byte(`<script>never closed`)))
	assert.Zero(t, scriptCoverage(nil))
}
