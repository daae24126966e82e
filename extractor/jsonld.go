package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/use-agent/prodex/cleaner"
	"github.com/use-agent/prodex/models"
)

// JSONLD extracts schema.org Product objects from
// <script type="application/ld+json"> blocks.
type JSONLD struct{}

func (JSONLD) Name() string { return "jsonld" }

func (JSONLD) Extract(p *Page) (*models.Product, error) {
	blocks := p.JSONLDBlocks()
	node := findProductLD(blocks)
	if node == nil {
		return nil, fmt.Errorf("%w: no schema.org Product in %d json-ld blocks", ErrNoCandidate, len(blocks))
	}
	return normalizeJSONLD(node, p), nil
}

// findProductLD returns the first Product node across blocks. Blocks that
// fail to decode are skipped.
func findProductLD(blocks []string) map[string]any {
	for _, body := range blocks {
		var data any
		if err := json.Unmarshal([]byte(body), &data); err != nil {
			continue
		}
		for _, item := range asList(data) {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if isProductType(obj["@type"]) {
				return obj
			}
			for _, g := range listAt(obj, "@graph") {
				if gobj, ok := g.(map[string]any); ok && isProductType(gobj["@type"]) {
					return gobj
				}
			}
		}
	}
	return nil
}

// isProductType accepts "@type": "Product" and "@type": ["Product", ...].
func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func normalizeJSONLD(node map[string]any, p *Page) *models.Product {
	name := strAt(node, "name")
	if strings.TrimSpace(name) == "" {
		name = unknownProduct
	}

	brand := strAt(node, "brand")
	if brand == "" {
		brand = strAt(node, "brand.name")
	}

	prod := &models.Product{
		Name:             name,
		FullTitle:        name,
		Description:      strAt(node, "description"),
		Brand:            brand,
		Category:         strAt(node, "category"),
		ProductType:      strAt(node, "category"),
		Image:            p.imageRef(ldImage(node["image"])),
		ColorDescription: ldColor(node),
		StyleColor:       firstStr(node, "sku", "mpn", "productID"),
		IsAvailable:      true,
		URL:              p.URL,
	}

	if offers := asList(node["offers"]); len(offers) > 0 {
		offer := offers[0]
		prod.Price = cleaner.FirstPrice(at(offer, "price"), at(offer, "lowPrice"))
		prod.Currency = strAt(offer, "priceCurrency")
		prod.IsAvailable = !strings.Contains(strAt(offer, "availability"), "OutOfStock")
	}

	return finalize(prod)
}

// ldImage picks the image reference from a string, an array of strings or
// ImageObjects, or a single ImageObject.
func ldImage(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, e := range t {
			if s := ldImage(e); strings.TrimSpace(s) != "" {
				return s
			}
		}
	case map[string]any:
		return firstStr(t, "url", "contentUrl")
	}
	return ""
}

func ldColor(node map[string]any) string {
	if c := strAt(node, "color"); c != "" {
		return c
	}
	for _, prop := range asList(node["additionalProperty"]) {
		switch strings.ToLower(strAt(prop, "name")) {
		case "color", "colorway":
			return strAt(prop, "value")
		}
	}
	return ""
}
