package extractor

import (
	"fmt"
	"strings"

	"github.com/use-agent/prodex/cleaner"
	"github.com/use-agent/prodex/models"
)

// nikeCandidatePaths are the fixed locations of the selected product in
// Nike's page state, tried in order.
var nikeCandidatePaths = []string{
	"props.pageProps.selectedProduct",
	"props.pageProps.product",
	"props.pageProps.initialState.product.selectedProduct",
}

const nikeProductState = "props.pageProps.initialState.product"

// Nike reads the product object out of nike.com's __NEXT_DATA__ state.
type Nike struct{}

func (Nike) Name() string { return "nike" }

func (Nike) Extract(p *Page) (*models.Product, error) {
	blob, err := p.NextData()
	if err != nil {
		return nil, err
	}
	obj := nikeCandidate(blob)
	if obj == nil {
		return nil, fmt.Errorf("%w: product data not found in nike page state", ErrNoCandidate)
	}
	return normalizeNike(obj, p), nil
}

func nikeCandidate(blob *Blob) map[string]any {
	for _, path := range nikeCandidatePaths {
		if obj := objAt(blob.Tree, path); obj != nil {
			return obj
		}
	}

	// Product maps keyed by style code: take the first entry that has a
	// title, in document order.
	state := objAt(blob.Tree, nikeProductState)
	if state == nil {
		return nil
	}
	for _, key := range blob.Keys(nikeProductState) {
		if key == "selectedProduct" {
			continue
		}
		if obj, ok := state[key].(map[string]any); ok && truthy(obj["title"]) {
			return obj
		}
	}
	return nil
}

func normalizeNike(obj map[string]any, p *Page) *models.Product {
	title := firstStr(obj, "productInfo.title", "title", "name")
	if title == "" {
		title = unknownProduct
	}
	subtitle := firstStr(obj, "productInfo.subtitle", "subtitle")

	fullTitle := strAt(obj, "productInfo.fullTitle")
	if strings.TrimSpace(fullTitle) == "" {
		fullTitle = title
		if subtitle != "" {
			fullTitle = title + " " + subtitle
		}
	}

	var brand string
	if brands, ok := obj["brands"].([]any); ok {
		brand = strAt(brands, "0")
	} else {
		brand = strAt(obj, "brand")
	}
	if brand == "" {
		brand = "Nike"
	}

	category := strAt(obj, "productType")
	if category == "" {
		category = "Footwear"
	}

	return finalize(&models.Product{
		Name:             title,
		Subtitle:         subtitle,
		FullTitle:        fullTitle,
		Description:      firstStr(obj, "productInfo.productDescription", "productInfo.description", "description"),
		Brand:            brand,
		Category:         category,
		Price:            cleaner.FirstPrice(at(obj, "prices.currentPrice"), at(obj, "prices.initialPrice")),
		Currency:         strAt(obj, "prices.currency"),
		Image:            p.imageRef(firstStr(obj, "contentImages.0.properties.squarish.url", "contentImages.0.properties.portrait.url", "contentImages.0.url")),
		ColorDescription: strAt(obj, "colorDescription"),
		StyleColor:       strAt(obj, "styleColor"),
		ProductType:      strAt(obj, "productType"),
		IsAvailable:      true,
		URL:              p.URL,
	})
}
