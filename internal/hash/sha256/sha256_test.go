package sha256

import "testing"

func TestSumDeterministic(t *testing.T) {
	t.Parallel()

	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got := Sum([]byte("hello world")); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if ETag([]byte("hello world")) != `"b94d27b9934d3e08a52e52d7da7dabfa"` {
		t.Fatalf("unexpected etag %s", ETag([]byte("hello world")))
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	etag := ETag([]byte("<html></html>"))
	cases := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "empty", header: "", want: false},
		{name: "exact", header: etag, want: true},
		{name: "weak", header: "W/" + etag, want: true},
		{name: "list", header: `"abc", ` + etag, want: true},
		{name: "wildcard", header: "*", want: true},
		{name: "other", header: `"abc"`, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Matches(tc.header, etag); got != tc.want {
				t.Fatalf("Matches(%q) = %v, want %v", tc.header, got, tc.want)
			}
		})
	}
}
