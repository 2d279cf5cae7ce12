// Package catalog models software update catalogs: parsing, serializing,
// filtering, and URL rewriting of sucatalog property lists.
//
// A catalog is kept as the decoded property list document rather than a
// fixed struct, so keys this package does not model survive a parse and
// serialize round trip unchanged.
package catalog

import (
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"howett.net/plist"

	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/utils"
)

// Well-known sucatalog keys.
const (
	keyProducts          = "Products"
	keyServerMetadataURL = "ServerMetadataURL"
	keyPackages          = "Packages"
	keyURL               = "URL"
	keyMetadataURL       = "MetadataURL"
	keyDistributions     = "Distributions"
)

// Catalog is one software update catalog document.
type Catalog struct {
	doc map[string]interface{}
}

// Product is a view over a single updatable item in a catalog. Mutations
// through a Product write into the catalog it came from.
type Product struct {
	dict map[string]interface{}
}

// Package is a view over one installable payload within a product.
type Package struct {
	dict map[string]interface{}
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{doc: map[string]interface{}{}}
}

// Parse decodes a sucatalog property list. The document must be a
// dictionary at the top level; a missing Products key is fine and reads
// as an empty product set.
func Parse(data []byte) (*Catalog, error) {
	var doc map[string]interface{}
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, models.NewError(models.ErrCatalogParse, "", err)
	}
	return &Catalog{doc: doc}, nil
}

// Marshal serializes the catalog as an XML property list.
func (c *Catalog) Marshal() ([]byte, error) {
	data, err := plist.MarshalIndent(c.doc, plist.XMLFormat, "\t")
	if err != nil {
		return nil, models.NewError(models.ErrCatalogParse, "", err)
	}
	return data, nil
}

// ReadFile loads a catalog from a file.
func ReadFile(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, models.NewError(models.ErrCatalogParse, path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, models.NewError(models.ErrCatalogParse, path, err)
	}
	return cat, nil
}

// WriteFile persists the catalog atomically.
func WriteFile(fs afero.Fs, path string, c *Catalog) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := utils.AtomicWriteFile(fs, path, data, 0644); err != nil {
		return models.NewError(models.ErrReplication, path, err)
	}
	return nil
}

// Copy returns a deep copy of the catalog. Rewrite passes work on copies
// so one variant's rewritten URLs never leak into another.
func (c *Catalog) Copy() *Catalog {
	return &Catalog{doc: copyDict(c.doc)}
}

// ProductKeys returns the sorted product identifiers.
func (c *Catalog) ProductKeys() []string {
	products := c.products()
	keys := make([]string, 0, len(products))
	for k := range products {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Product looks up one product by key.
func (c *Catalog) Product(key string) (Product, bool) {
	if dict, ok := c.products()[key].(map[string]interface{}); ok {
		return Product{dict: dict}, true
	}
	return Product{}, false
}

// Products returns a view of every product, keyed by product identifier.
func (c *Catalog) Products() map[string]Product {
	raw := c.products()
	out := make(map[string]Product, len(raw))
	for k, v := range raw {
		if dict, ok := v.(map[string]interface{}); ok {
			out[k] = Product{dict: dict}
		}
	}
	return out
}

// Filter returns a deep copy of the catalog whose product set is exactly
// the given keys. Every key must name a product present in the source;
// an unknown key means the applicable-updates result and the catalog
// have diverged and the caller must refetch, so it is an error rather
// than a silent skip.
func Filter(c *Catalog, keys []string) (*Catalog, error) {
	out := c.Copy()
	raw, ok := out.doc[keyProducts].(map[string]interface{})
	if !ok {
		if len(keys) == 0 {
			return out, nil
		}
		return nil, models.NewError(models.ErrFilterKey, keys[0],
			fmt.Errorf("catalog has no products"))
	}

	filtered := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			return nil, models.NewError(models.ErrFilterKey, k,
				fmt.Errorf("product not present in catalog"))
		}
		filtered[k] = v
	}
	out.doc[keyProducts] = filtered
	return out, nil
}

// ServerMetadataURL returns the product's server metadata URL, if any.
func (p Product) ServerMetadataURL() (string, bool) {
	return stringValue(p.dict, keyServerMetadataURL)
}

// Packages returns views over the product's installable payloads.
func (p Product) Packages() []Package {
	raw, ok := p.dict[keyPackages].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Package, 0, len(raw))
	for _, v := range raw {
		if dict, ok := v.(map[string]interface{}); ok {
			out = append(out, Package{dict: dict})
		}
	}
	return out
}

// Distributions returns the product's language to distribution URL map.
// Products without one return an empty map.
func (p Product) Distributions() map[string]string {
	raw, ok := p.dict[keyDistributions].(map[string]interface{})
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(raw))
	for lang, v := range raw {
		if u, ok := v.(string); ok {
			out[lang] = u
		}
	}
	return out
}

// URL returns the package's payload URL, if any.
func (p Package) URL() (string, bool) {
	return stringValue(p.dict, keyURL)
}

// MetadataURL returns the package's metadata URL, if any.
func (p Package) MetadataURL() (string, bool) {
	return stringValue(p.dict, keyMetadataURL)
}

func (c *Catalog) products() map[string]interface{} {
	if raw, ok := c.doc[keyProducts].(map[string]interface{}); ok {
		return raw
	}
	return map[string]interface{}{}
}

func stringValue(dict map[string]interface{}, key string) (string, bool) {
	s, ok := dict[key].(string)
	return s, ok
}

func copyDict(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyDict(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}
