package scope

import "testing"

func TestGuardRejectsOutOfScopeHost(t *testing.T) {
	g, err := New(Config{AllowedDomains: []string{"example.org"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Allowed("https://evil.example.com/x") {
		t.Fatal("expected rejection of out-of-scope host")
	}
}

func TestGuardAllowsSubdomain(t *testing.T) {
	g, err := New(Config{AllowedDomains: []string{"example.org"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !g.Allowed("https://www.example.org/a") {
		t.Fatal("expected subdomain to be allowed")
	}
}

func TestGuardExcludesExtension(t *testing.T) {
	g, err := New(Config{AllowedDomains: []string{"example.org"}, ExcludeExtensions: []string{"png", ".jpg"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Allowed("https://example.org/a/b.png") {
		t.Fatal("expected png to be excluded")
	}
	if g.Allowed("https://example.org/a/b.jpg") {
		t.Fatal("expected jpg to be excluded")
	}
	if !g.Allowed("https://example.org/a/b.html") {
		t.Fatal("expected html to be allowed")
	}
}

func TestGuardDisallowedPathWildcard(t *testing.T) {
	g, err := New(Config{AllowedDomains: []string{"example.org"}, DisallowedPaths: []string{"/admin/*"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Allowed("https://example.org/admin/users") {
		t.Fatal("expected /admin/* to be disallowed")
	}
	if !g.Allowed("https://example.org/public/users") {
		t.Fatal("expected /public/users to be allowed")
	}
}

func TestGuardRejectsNonHTTPScheme(t *testing.T) {
	g, err := New(Config{AllowedDomains: []string{"example.org"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Allowed("ftp://example.org/a") {
		t.Fatal("expected ftp scheme rejection")
	}
}
