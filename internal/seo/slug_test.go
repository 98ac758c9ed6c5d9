package seo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "Hotel Cambutal", want: "hotel-cambutal"},
		{name: "punctuation stripped", in: "Mama Fela's Café & Bar!", want: "mama-felas-caf-bar"},
		{name: "whitespace collapsed", in: "  Surf   Camp \t Tour ", want: "surf-camp-tour"},
		{name: "hyphens deduplicated", in: "Yoga -- by -- the Sea", want: "yoga-by-the-sea"},
		{name: "underscores kept", in: "Casa_Buena", want: "casa_buena"},
		{name: "edge hyphens kept", in: "-Hotel-", want: "-hotel-"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestListingPathUsesSlugify(t *testing.T) {
	t.Parallel()

	l := Listing{Kind: KindActivity, Name: "Cambutal Sport Fishing"}
	require.Equal(t, "/do/cambutal-sport-fishing", l.Path())

	l.Slug = "fishing"
	require.Equal(t, "/do/fishing", l.Path())
}
