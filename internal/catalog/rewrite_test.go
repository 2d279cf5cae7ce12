package catalog

import (
	"strings"
	"testing"
)

const mirrorBase = "file://localhost/var/mirror"

func TestRewriteURL(t *testing.T) {
	got := RewriteURL("https://host/pkgs/a.pkg", mirrorBase)
	want := "file://localhost/var/mirror/pkgs/a.pkg"
	if got != want {
		t.Errorf("RewriteURL = %q, want %q", got, want)
	}
}

// Rewriting keys on the URL path alone: the host is dropped and query
// strings or fragments do not survive.
func TestRewriteURLPathOnly(t *testing.T) {
	a := RewriteURL("https://swcdn.example.com/content/downloads/a.pkg", mirrorBase)
	b := RewriteURL("https://other-host.example.com/content/downloads/a.pkg", mirrorBase)
	if a != b {
		t.Errorf("same path on different hosts should map identically: %q vs %q", a, b)
	}

	got := RewriteURL("https://host/content/a.pkg?token=abc123#frag", mirrorBase)
	if strings.Contains(got, "token") || strings.Contains(got, "frag") {
		t.Errorf("query or fragment survived rewrite: %q", got)
	}
	if got != "file://localhost/var/mirror/content/a.pkg" {
		t.Errorf("unexpected rewrite result %q", got)
	}
}

func TestRewriteURLIdempotent(t *testing.T) {
	urls := []string{
		"https://swscan.example.com/content/meta/041-5487.smd",
		"https://host/pkgs/a.pkg?query=1",
		"file://localhost/var/mirror/already/local.dist",
	}
	for _, u := range urls {
		once := RewriteURL(u, mirrorBase)
		twice := RewriteURL(once, mirrorBase)
		if once != twice {
			t.Errorf("rewrite not idempotent for %q: %q then %q", u, once, twice)
		}
	}
}

func TestRewriteURLUnparseable(t *testing.T) {
	bad := "http://[::1:malformed/a.pkg"
	if got := RewriteURL(bad, mirrorBase); got != bad {
		t.Errorf("unparseable URL should pass through unchanged, got %q", got)
	}
}

func TestRewriteURLPreservesEscaping(t *testing.T) {
	got := RewriteURL("https://host/content/Mac%20OS%20X/a.pkg", mirrorBase)
	want := "file://localhost/var/mirror/content/Mac%20OS%20X/a.pkg"
	if got != want {
		t.Errorf("RewriteURL = %q, want %q", got, want)
	}
}

func TestCatalogRewriteDownloadVariant(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cat.RewriteURLs(mirrorBase, false)

	p, _ := cat.Product("041-5487")
	if u, _ := p.ServerMetadataURL(); !strings.HasPrefix(u, mirrorBase) {
		t.Errorf("ServerMetadataURL not rewritten: %q", u)
	}
	pkg := p.Packages()[0]
	if u, _ := pkg.URL(); !strings.HasPrefix(u, "https://") {
		t.Errorf("package payload URL must stay remote in the download variant: %q", u)
	}
	if u, _ := pkg.MetadataURL(); !strings.HasPrefix(u, mirrorBase) {
		t.Errorf("package MetadataURL not rewritten: %q", u)
	}
	for lang, u := range p.Distributions() {
		if !strings.HasPrefix(u, mirrorBase) {
			t.Errorf("%s distribution not rewritten: %q", lang, u)
		}
	}
}

func TestCatalogRewriteInstallVariant(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cat.RewriteURLs(mirrorBase, true)

	for key, p := range cat.Products() {
		for _, pkg := range p.Packages() {
			if u, ok := pkg.URL(); ok && !strings.HasPrefix(u, mirrorBase) {
				t.Errorf("%s: payload URL not rewritten in install variant: %q", key, u)
			}
		}
	}
}

// A product without a Distributions dictionary is tolerated.
func TestRewriteWithoutDistributions(t *testing.T) {
	cat, err := Parse([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
<key>Products</key><dict>
<key>041-0001</key><dict>
<key>Packages</key><array><dict>
<key>URL</key><string>https://host/a.pkg</string>
</dict></array>
</dict>
</dict>
</dict></plist>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cat.RewriteURLs(mirrorBase, true)

	p, _ := cat.Product("041-0001")
	if u, _ := p.Packages()[0].URL(); u != "file://localhost/var/mirror/a.pkg" {
		t.Errorf("payload URL = %q", u)
	}
}

func TestRewriteTwicePreservesDocument(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cat.RewriteURLs(mirrorBase, true)
	first, err := cat.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	cat.RewriteURLs(mirrorBase, true)
	second, err := cat.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if string(first) != string(second) {
		t.Error("second rewrite pass altered the catalog")
	}
}
