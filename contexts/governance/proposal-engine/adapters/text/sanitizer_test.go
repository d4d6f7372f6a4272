package textadapter

import "testing"

func TestStrictSanitizerStripsMarkup(t *testing.T) {
	sanitizer := NewStrictSanitizer()
	cases := map[string]string{
		"  Fund the <b>treasury</b> ":             "Fund the treasury",
		`<script>alert("x")</script>Adopt budget`: "Adopt budget",
		"R&D allocation":                          "R&amp;D allocation",
		"plain":                                   "plain",
	}
	for input, want := range cases {
		if got := sanitizer.Sanitize(input); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestStrictSanitizerStripsEncodedMarkup(t *testing.T) {
	sanitizer := NewStrictSanitizer()
	cases := map[string]string{
		"&lt;script&gt;alert(1)&lt;/script&gt;Budget": "Budget",
		"a &amp;lt;b&amp;gt;":                         "a",
		"&lt;img src=x onerror=alert(1)&gt;Vote":      "Vote",
	}
	for input, want := range cases {
		if got := sanitizer.Sanitize(input); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestStrictSanitizerIsIdempotent(t *testing.T) {
	sanitizer := NewStrictSanitizer()
	for _, input := range []string{
		"a &amp;lt;b&amp;gt;",
		"R&D allocation",
		"Fees < 5% & rising",
		"&lt;script&gt;x&lt;/script&gt;Budget",
	} {
		once := sanitizer.Sanitize(input)
		if twice := sanitizer.Sanitize(once); twice != once {
			t.Fatalf("Sanitize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestZeroValueSanitizerOnlyTrims(t *testing.T) {
	var sanitizer StrictSanitizer
	if got := sanitizer.Sanitize("  <i>x</i> "); got != "<i>x</i>" {
		t.Fatalf("unexpected %q", got)
	}
}
