package match

import "testing"

func TestNormalizeString(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Hello   World ", "hello world"},
		{"Café", "cafe"},
		{"JOSÉ  García", "jose garcia"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeString(c.in); got != c.want {
			t.Errorf("NormalizeString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeName_StripsHonorifics(t *testing.T) {
	if got := NormalizeName("Dr. Sarah Chen"); got != "sarah chen" {
		t.Errorf("got %q", got)
	}
	if got := NormalizeName("Prof Alan Turing"); got != "alan turing" {
		t.Errorf("got %q", got)
	}
	// A lone honorific-looking token is a name, not a title.
	if got := NormalizeName("Dr"); got != "dr" {
		t.Errorf("got %q", got)
	}
}

func TestExtractNameParts(t *testing.T) {
	p := ExtractNameParts("Mary Anne van Dyke")
	if p.First != "mary" || p.Last != "dyke" || len(p.Middle) != 2 {
		t.Errorf("unexpected parts: %+v", p)
	}

	single := ExtractNameParts("Sarah")
	if single.First != "sarah" || single.Last != "" {
		t.Errorf("single-token name should have empty last: %+v", single)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"flaw", "lawn", 2},
	}
	for _, c := range cases {
		if got := LevenshteinDistance(c.a, c.b); got != c.want {
			t.Errorf("LevenshteinDistance(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarity_IdentityAndBounds(t *testing.T) {
	samples := []string{"sarah", "q1 report", "a", "meeting tomorrow", "josé"}
	for _, s := range samples {
		if got := LevenshteinSimilarity(s, s); got != 1 {
			t.Errorf("LevenshteinSimilarity(%q,%q) = %v, want 1", s, s, got)
		}
		if got := JaroWinklerSimilarity(s, s); got != 1 {
			t.Errorf("JaroWinklerSimilarity(%q,%q) = %v, want 1", s, s, got)
		}
	}

	pairs := [][2]string{
		{"sarah", "sara"}, {"", "x"}, {"abc", "xyz"}, {"martha", "marhta"},
	}
	for _, p := range pairs {
		for _, got := range []float64{
			LevenshteinSimilarity(p[0], p[1]),
			JaroWinklerSimilarity(p[0], p[1]),
		} {
			if got < 0 || got > 1 {
				t.Errorf("similarity(%q,%q) = %v out of [0,1]", p[0], p[1], got)
			}
		}
	}

	if LevenshteinSimilarity("", "abc") != 0 {
		t.Error("empty side should score 0")
	}
}

func TestJaroWinkler_PrefixBoost(t *testing.T) {
	// Shared prefix should score above plain Jaro for the same strings.
	boosted := JaroWinklerSimilarity("martha", "marhta")
	plain := jaroSimilarity("martha", "marhta")
	if boosted <= plain {
		t.Errorf("expected prefix boost: jw=%v jaro=%v", boosted, plain)
	}
}

func TestCouldBeNickname(t *testing.T) {
	cases := []struct {
		query, first string
		want         bool
	}{
		{"Sar", "Sarah", true},  // prefix >= 2 chars
		{"S", "Sarah", false},   // too short
		{"Bob", "Robert", true}, // table lookup
		{"Liz", "Elizabeth", true},
		{"Bob", "William", false},
	}
	for _, c := range cases {
		if got := CouldBeNickname(c.query, c.first); got != c.want {
			t.Errorf("CouldBeNickname(%q,%q) = %v, want %v", c.query, c.first, got, c.want)
		}
	}
}

func TestNameMatchesEmail(t *testing.T) {
	cases := []struct {
		name, email string
		want        bool
	}{
		{"Sarah Chen", "sarah.chen@acme.com", true},
		{"Sarah Chen", "schen@acme.com", true},
		{"Sarah Chen", "sarahc@acme.com", true},
		{"Sarah Chen", "sarah_chen@acme.com", true},
		{"Sarah Chen", "chen@acme.com", true},
		{"Sarah Chen", "mike.ross@acme.com", false},
		{"Sarah Chen", "not-an-email", false},
	}
	for _, c := range cases {
		if got := NameMatchesEmail(c.name, c.email); got != c.want {
			t.Errorf("NameMatchesEmail(%q,%q) = %v, want %v", c.name, c.email, got, c.want)
		}
	}
}

func TestNameSimilarity(t *testing.T) {
	if got := NameSimilarity("John Smith", "John Smith"); got != 1 {
		t.Errorf("exact full match = %v, want 1", got)
	}
	if got := NameSimilarity("John", "John Smith"); got < 0.8 {
		t.Errorf("first-name-only match = %v, want >= 0.8", got)
	}
	if got := NameSimilarity("Smith", "John Smith"); got < 0.8 {
		t.Errorf("last-name-only match = %v, want >= 0.8", got)
	}
	if got := NameSimilarity("Bob", "Robert Paulson"); got < 0.75 {
		t.Errorf("nickname match = %v, want >= 0.75", got)
	}
	if got := NameSimilarity("Sarah", "Mike Ross"); got > 0.6 {
		t.Errorf("unrelated names scored too high: %v", got)
	}
}

func TestTextSimilarity(t *testing.T) {
	if got := TextSimilarity("Q1 report", "Q1 report"); got != 1 {
		t.Errorf("identical = %v, want 1", got)
	}
	overlap := TextSimilarity("quarterly revenue report", "revenue report for the quarter")
	unrelated := TextSimilarity("quarterly revenue report", "dentist appointment")
	if overlap <= unrelated {
		t.Errorf("overlap %v should beat unrelated %v", overlap, unrelated)
	}
	if got := TextSimilarity("", "anything"); got != 0 {
		t.Errorf("empty query = %v, want 0", got)
	}
}
