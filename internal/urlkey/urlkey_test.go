package urlkey

import "testing"

func TestCanonicalizeIdempotent(t *testing.T) {
	raw := "https://A.test/Foo/?b=2&utm_source=x&a=1#frag"
	first, err := Canonicalize(raw, "", Options{})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	second, err := Canonicalize(first.Canonical, "", Options{})
	if err != nil {
		t.Fatalf("canonicalize twice: %v", err)
	}
	if first.Canonical != second.Canonical {
		t.Fatalf("not idempotent: %q != %q", first.Canonical, second.Canonical)
	}
	if first.URLKey != second.URLKey {
		t.Fatalf("url_key not idempotent: %q != %q", first.URLKey, second.URLKey)
	}
}

func TestCanonicalizeSpecExample(t *testing.T) {
	raw := "https://A.test/Foo/?b=2&utm_source=x&a=1#frag"
	got, err := Canonicalize(raw, "", Options{})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := "https://a.test/Foo?a=1&b=2"
	if got.Canonical != want {
		t.Fatalf("canonical = %q, want %q", got.Canonical, want)
	}
}

func TestCanonicalizeEquivalence(t *testing.T) {
	cases := []struct {
		name string
		u    string
	}{
		{"host-case", "https://EXAMPLE.com/a?a=1&b=2"},
		{"fragment", "https://example.com/a?a=1&b=2#section"},
		{"tracking-param", "https://example.com/a?a=1&fbclid=xyz&b=2"},
		{"param-order", "https://example.com/a?b=2&a=1"},
		{"dot-segments", "https://example.com/x/../a?a=1&b=2"},
		{"duplicate-slash-trim", "https://example.com//a/?a=1&b=2"},
	}
	base, err := Canonicalize("https://example.com/a?a=1&b=2", "", Options{})
	if err != nil {
		t.Fatalf("base canonicalize: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.u, "", Options{})
			if err != nil {
				t.Fatalf("canonicalize %q: %v", tc.u, err)
			}
			if got.Canonical != base.Canonical {
				t.Errorf("canonical(%q) = %q, want %q", tc.u, got.Canonical, base.Canonical)
			}
		})
	}
}

func TestCanonicalizeRelativeResolution(t *testing.T) {
	got, err := Canonicalize("/page2", "https://example.com/dir/", Options{})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got.Canonical != "https://example.com/page2" {
		t.Fatalf("canonical = %q", got.Canonical)
	}
}

func TestCanonicalizeRejectsNonHTTPScheme(t *testing.T) {
	if _, err := Canonicalize("ftp://example.com/a", "", Options{}); err == nil {
		t.Fatal("expected error for non-http(s) scheme")
	}
}

func TestCanonicalizeBareHostRootSlash(t *testing.T) {
	got, err := Canonicalize("https://example.com", "", Options{})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got.Canonical != "https://example.com/" {
		t.Fatalf("canonical = %q, want trailing slash root", got.Canonical)
	}
}

func TestCanonicalizeUppercasesPercentEncoding(t *testing.T) {
	got, err := Canonicalize("https://example.com/a%2fb", "", Options{})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got.Canonical != "https://example.com/a%2Fb" {
		t.Fatalf("canonical = %q, want uppercase hex escape", got.Canonical)
	}
}
