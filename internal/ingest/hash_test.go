package ingest

import "testing"

// TestSum tests digest stability and shape.
func TestSum(t *testing.T) {
	got := Sum([]byte("hello"))
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("Sum() = %q, want %q", got, want)
	}

	if Sum([]byte("hello")) != Sum([]byte("hello")) {
		t.Error("Sum() must be deterministic")
	}
	if Sum([]byte("hello")) == Sum([]byte("hello ")) {
		t.Error("Sum() must differ for different content")
	}
}

// TestCanonicalizeURL tests URL normalization for dedup.
func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "lowercases scheme and host", in: "HTTPS://Example.COM/Path", want: "https://example.com/Path"},
		{name: "drops fragment", in: "https://example.com/page#section-2", want: "https://example.com/page"},
		{name: "drops default https port", in: "https://example.com:443/page", want: "https://example.com/page"},
		{name: "drops default http port", in: "http://example.com:80/page", want: "http://example.com/page"},
		{name: "keeps custom port", in: "https://example.com:8443/page", want: "https://example.com:8443/page"},
		{name: "bare root slash removed", in: "https://example.com/", want: "https://example.com"},
		{name: "query preserved", in: "https://example.com/s?q=go&page=2", want: "https://example.com/s?q=go&page=2"},
		{name: "surrounding whitespace", in: "  https://example.com/page  ", want: "https://example.com/page"},
		{name: "relative URL rejected", in: "/just/a/path", wantErr: true},
		{name: "empty rejected", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CanonicalizeURL(%q) expected error, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CanonicalizeURL(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestCanonicalizeURLDedup tests that spelling variants hash identically.
func TestCanonicalizeURLDedup(t *testing.T) {
	a, err := CanonicalizeURL("https://Example.com/article#intro")
	if err != nil {
		t.Fatal(err)
	}
	b, err := CanonicalizeURL("https://example.com:443/article")
	if err != nil {
		t.Fatal(err)
	}
	if Sum([]byte(a)) != Sum([]byte(b)) {
		t.Errorf("variants should share a hash: %q vs %q", a, b)
	}
}
