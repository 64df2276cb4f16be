package slug

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "turkish capital dotted I", input: "İstanbul", want: "istanbul"},
		{name: "city and district with punctuation", input: "İstanbul Beşiktaş!", want: "istanbul-besiktas"},
		{name: "mixed turkish letters", input: "Şanlıurfa Çiğ Köfte", want: "sanliurfa-cig-kofte"},
		{name: "dotless capital I", input: "IĞDIR", want: "igdir"},
		{name: "punctuation runs collapse", input: "  --Beyoğlu!!  Meyhane--  ", want: "beyoglu-meyhane"},
		{name: "digits kept", input: "Route 66", want: "route-66"},
		{name: "only symbols", input: "!!!", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "untabled accents are separators", input: "Café Crème", want: "caf-cr-me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Make(tt.input)
			assert.Equal(t, tt.want, got)
			if got != "" {
				assert.Regexp(t, slugShape, got)
			}
		})
	}
}

func TestMakeIsIdempotent(t *testing.T) {
	inputs := []string{"Gaziantep", "Kadıköy Çarşı", "  a--b  ", "ÖĞÜŞÇİ ıöüşçğ", "x", "--", "Ünye / Ordu"}
	for _, in := range inputs {
		once := Make(in)
		assert.Equal(t, once, Make(once), "input %q", in)
		if once != "" {
			assert.Regexp(t, slugShape, once)
		}
	}
}

func TestIDs(t *testing.T) {
	assert.Equal(t, "city-istanbul", CityID("İstanbul"))
	assert.Equal(t, "district-istanbul-kadikoy", DistrictID("İstanbul", "Kadıköy"))
}
