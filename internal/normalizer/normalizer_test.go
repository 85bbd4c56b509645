package normalizer

import "testing"

func TestStripTrailingYearSuffix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Waiting (1998)", "Waiting"},
		{"Waiting [1998]", "Waiting"},
		{"Waiting - 1998", "Waiting"},
		{"Waiting 1998", "Waiting"},
		{"1984", "1984"},
		{"Live 1998", "Live 1998"},
		{"The 1975", "The 1975"},
	}
	for _, c := range cases {
		if got := StripTrailingYearSuffix(c.in); got != c.want {
			t.Errorf("StripTrailingYearSuffix(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTitleEquivalence(t *testing.T) {
	forms := []string{
		"Waiting (1998)",
		"Waiting [1998]",
		"Waiting - 1998",
		"Waiting 1998",
	}
	want := NormalizeTitle("Waiting")
	for _, f := range forms {
		if got := NormalizeTitle(f); got != want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", f, got, want)
		}
	}
}

func TestNormalizeTitleSpecialCases(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1984", "1984"},
		{"Live 1998", "live 1998"},
		{"The 1975", "the 1975"},
		{"Sticks & Stones", "sticks and stones"},
		{"Sticks and Stones", "sticks and stones"},
		{"Rock + Roll", "rock and roll"},
	}
	for _, c := range cases {
		if got := NormalizeTitle(c.in); got != c.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	titles := []string{
		"Sticks and Stones (Deluxe Edition)",
		"The Black Parade",
		"Coming Home [Remastered]",
		"Waiting (1998)",
		"Señor Señor",
	}
	for _, title := range titles {
		once := NormalizeTitle(title)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent for %q: %q != %q", title, once, twice)
		}
	}
}

func TestNormalizeTitleEditionNoise(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Sticks and Stones (Deluxe Edition)", "sticks and stones"},
		{"Coming Home (Remastered)", "coming home"},
		{"Anniversary Expanded Edition", ""},
		{"Album (Bonus Track Version)", "album version"},
	}
	for _, c := range cases {
		if got := NormalizeTitle(c.in); got != c.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsStrongTitleAliasMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"sticks and stones", "sticks and stones", true},
		{"the black parade is dead", "the black parade", true},
		{"a", "ab", false},
		{"greatest hits", "the greatest hits of all time collection", false},
	}
	for _, c := range cases {
		if got := IsStrongTitleAliasMatch(c.a, c.b, 0.75); got != c.want {
			t.Errorf("IsStrongTitleAliasMatch(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
