package extractor

import (
	"fmt"

	"github.com/use-agent/prodex/cleaner"
	"github.com/use-agent/prodex/models"
)

const pageProps = "props.pageProps"

// nextDataCandidates are the conventional product keys under pageProps.
var nextDataCandidates = []string{"product", "item", "productData", "data.product"}

// NextData is the generic heuristic for Next.js storefronts: it looks for
// a product-shaped object in pageProps, at most one level deep.
type NextData struct{}

func (NextData) Name() string { return "nextdata" }

func (NextData) Extract(p *Page) (*models.Product, error) {
	blob, err := p.NextData()
	if err != nil {
		return nil, err
	}
	props := objAt(blob.Tree, pageProps)
	if props == nil {
		return nil, fmt.Errorf("%w: __NEXT_DATA__ has no pageProps", ErrNoCandidate)
	}
	obj := nextDataCandidate(blob, props)
	if obj == nil {
		return nil, fmt.Errorf("%w: no product-shaped object in pageProps", ErrNoCandidate)
	}
	return normalizeNextData(obj, p), nil
}

func nextDataCandidate(blob *Blob, props map[string]any) map[string]any {
	for _, path := range nextDataCandidates {
		if obj := objAt(props, path); obj != nil && titled(obj) {
			return obj
		}
	}

	for _, key := range blob.Keys(pageProps) {
		obj, ok := props[key].(map[string]any)
		if !ok {
			continue
		}
		if titled(obj) && (has(obj, "price") || truthy(obj["offers"]) || truthy(obj["prices"])) {
			return obj
		}
	}
	return nil
}

func titled(obj map[string]any) bool {
	return truthy(obj["name"]) || truthy(obj["title"])
}

func normalizeNextData(obj map[string]any, p *Page) *models.Product {
	name := firstStr(obj, "name", "title")
	if name == "" {
		name = unknownProduct
	}

	var price *float64
	if _, isNum := obj["price"].(float64); isNum {
		price = cleaner.Price(obj["price"])
	} else {
		price = cleaner.FirstPrice(at(obj, "price"), at(obj, "prices.current"), at(obj, "prices.sale"), at(obj, "offers.price"))
	}

	return finalize(&models.Product{
		Name:             name,
		Subtitle:         strAt(obj, "subtitle"),
		FullTitle:        name,
		Description:      strAt(obj, "description"),
		Brand:            firstStr(obj, "brand.name", "brand"),
		Category:         firstStr(obj, "category", "productType"),
		Price:            price,
		Currency:         firstStr(obj, "currency", "prices.currency"),
		Image:            p.imageRef(nextDataImage(obj)),
		ColorDescription: firstStr(obj, "color", "colorDescription"),
		StyleColor:       firstStr(obj, "sku", "styleCode"),
		ProductType:      firstStr(obj, "productType", "category"),
		IsAvailable:      nextDataAvailable(obj),
		URL:              p.URL,
	})
}

func nextDataImage(obj map[string]any) string {
	if s, ok := obj["image"].(string); ok {
		return s
	}
	return firstStr(obj, "image.0", "image.0.url", "images.0.url", "images.0")
}

func nextDataAvailable(obj map[string]any) bool {
	if in, ok := obj["inStock"].(bool); ok && !in {
		return false
	}
	switch strAt(obj, "availability") {
	case "OutOfStock", "https://schema.org/OutOfStock", "http://schema.org/OutOfStock":
		return false
	}
	return true
}
