package catalog

import (
	"net/url"
	"strings"
)

// RewriteURL maps one resource URL onto the local mirror identified by
// baseURL (a file://localhost URL for the mirror root). The mapping keys
// on the URL's path component alone, so the same path on any host lands
// at the same mirror location and query strings or fragments are
// dropped. URLs already under baseURL come back unchanged, which makes
// rewriting an already rewritten catalog a no-op. A URL that does not
// parse also comes back unchanged.
func RewriteURL(rawURL, baseURL string) string {
	if strings.HasPrefix(rawURL, baseURL) {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return baseURL + parsed.EscapedPath()
}

// RewriteURLs points the product's metadata and distribution URLs at the
// local mirror. Package payload URLs are rewritten only when
// rewritePackageURLs is set: the download variant leaves payloads remote
// so the native updater fetches them itself, while the install variant
// maps them local so installs run fully offline.
func (p Product) RewriteURLs(baseURL string, rewritePackageURLs bool) {
	if u, ok := stringValue(p.dict, keyServerMetadataURL); ok {
		p.dict[keyServerMetadataURL] = RewriteURL(u, baseURL)
	}

	for _, pkg := range p.Packages() {
		if rewritePackageURLs {
			if u, ok := stringValue(pkg.dict, keyURL); ok {
				pkg.dict[keyURL] = RewriteURL(u, baseURL)
			}
		}
		if u, ok := stringValue(pkg.dict, keyMetadataURL); ok {
			pkg.dict[keyMetadataURL] = RewriteURL(u, baseURL)
		}
	}

	// Some older products carry no Distributions dictionary.
	dists, ok := p.dict[keyDistributions].(map[string]interface{})
	if !ok {
		return
	}
	for lang, v := range dists {
		if u, ok := v.(string); ok {
			dists[lang] = RewriteURL(u, baseURL)
		}
	}
}

// RewriteURLs applies the product rewrite to every product in the catalog.
func (c *Catalog) RewriteURLs(baseURL string, rewritePackageURLs bool) {
	for _, p := range c.Products() {
		p.RewriteURLs(baseURL, rewritePackageURLs)
	}
}
