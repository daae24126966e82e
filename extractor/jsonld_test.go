package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPage(t *testing.T, html, pageURL string) *Page {
	t.Helper()
	p, err := NewPage(html, pageURL)
	require.NoError(t, err)
	return p
}

func TestJSONLD_TrailShoe(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{"@type":"Product","name":"Trail Shoe","offers":{"price":"129.95","priceCurrency":"USD","availability":"InStock"}}</script></head></html>`
	p := mustPage(t, html, "https://shop.example.com/trail-shoe")

	prod, err := JSONLD{}.Extract(p)
	require.NoError(t, err)

	assert.Equal(t, "Trail Shoe", prod.Name)
	assert.Equal(t, "Trail Shoe", prod.FullTitle)
	require.NotNil(t, prod.Price)
	assert.InDelta(t, 129.95, *prod.Price, 1e-9)
	assert.Equal(t, "USD", prod.Currency)
	assert.True(t, prod.IsAvailable)
	assert.Nil(t, prod.Image)
	assert.Equal(t, "https://shop.example.com/trail-shoe", prod.URL)
}

func TestJSONLD_OutOfStock(t *testing.T) {
	html := `<script type="application/ld+json">
	{"@type":"Product","name":"Rain Jacket","brand":{"@type":"Brand","name":"Acme"},
	 "offers":[{"price":89,"priceCurrency":"EUR","availability":"https://schema.org/OutOfStock"}]}
	</script>`
	prod, err := JSONLD{}.Extract(mustPage(t, html, "https://example.com/p"))
	require.NoError(t, err)

	assert.Equal(t, "Acme", prod.Brand)
	require.NotNil(t, prod.Price)
	assert.Equal(t, 89.0, *prod.Price)
	assert.Equal(t, "EUR", prod.Currency)
	assert.False(t, prod.IsAvailable)
}

func TestJSONLD_MalformedBlockSkipped(t *testing.T) {
	html := `
	<script type="application/ld+json">{"@type": "Product", "name": </script>
	<script type="application/ld+json">{"@type":"Organization","name":"Acme Inc"}</script>
	<script type="application/ld+json">{"@type":"Product","name":"Second Block"}</script>`
	prod, err := JSONLD{}.Extract(mustPage(t, html, "https://example.com/p"))
	require.NoError(t, err)
	assert.Equal(t, "Second Block", prod.Name)
}

func TestJSONLD_TypeAttributeCaseInsensitive(t *testing.T) {
	html := `<script type="Application/LD+JSON">{"@type":"Product","name":"Mixed Case Block"}</script>`
	prod, err := JSONLD{}.Extract(mustPage(t, html, "https://example.com/p"))
	require.NoError(t, err)
	assert.Equal(t, "Mixed Case Block", prod.Name)
}

func TestJSONLD_GraphAndTypeArray(t *testing.T) {
	html := `<script type="application/ld+json">
	{"@context":"https://schema.org","@graph":[
		{"@type":"WebPage","name":"Page"},
		{"@type":["Product","IndividualProduct"],"name":"Graph Boot","sku":"GB-1",
		 "image":[{"@type":"ImageObject","url":"/img/boot.jpg"}]}
	]}
	</script>`
	prod, err := JSONLD{}.Extract(mustPage(t, html, "https://example.com/boots/graph"))
	require.NoError(t, err)

	assert.Equal(t, "Graph Boot", prod.Name)
	assert.Equal(t, "GB-1", prod.StyleColor)
	require.NotNil(t, prod.Image)
	assert.Equal(t, "https://example.com/img/boot.jpg", *prod.Image)
	assert.True(t, prod.IsAvailable)
	assert.Nil(t, prod.Price)
}

func TestJSONLD_FieldMapping(t *testing.T) {
	html := `<script type="application/ld+json">[
		{"@type":"BreadcrumbList"},
		{"@type":"Product","name":"Court Sneaker","brand":"Acme","category":"Shoes",
		 "description":"<p>Classic <b>leather</b> upper.</p>",
		 "image":"https://cdn.example.com/a.jpg",
		 "mpn":"MPN-9",
		 "additionalProperty":[{"name":"Size","value":"10"},{"name":"Colorway","value":"White/Black"}],
		 "offers":{"lowPrice":"59.00"}}
	]</script>`
	prod, err := JSONLD{}.Extract(mustPage(t, html, "https://example.com/p"))
	require.NoError(t, err)

	assert.Equal(t, "Acme", prod.Brand)
	assert.Equal(t, "Shoes", prod.Category)
	assert.Equal(t, "Shoes", prod.ProductType)
	assert.Equal(t, "Classic leather upper.", prod.Description)
	assert.Equal(t, "White/Black", prod.ColorDescription)
	assert.Equal(t, "MPN-9", prod.StyleColor)
	require.NotNil(t, prod.Image)
	assert.Equal(t, "https://cdn.example.com/a.jpg", *prod.Image)
	require.NotNil(t, prod.Price)
	assert.Equal(t, 59.0, *prod.Price)
	assert.Equal(t, "USD", prod.Currency)
}

func TestJSONLD_UnnamedProduct(t *testing.T) {
	html := `<script type="application/ld+json">{"@type":"Product","offers":{"price":"abc"}}</script>`
	prod, err := JSONLD{}.Extract(mustPage(t, html, "https://example.com/p"))
	require.NoError(t, err)
	assert.Equal(t, "Unknown Product", prod.Name)
	assert.Nil(t, prod.Price)
}

func TestJSONLD_NoProduct(t *testing.T) {
	html := `<script type="application/ld+json">{"@type":"Organization","name":"Acme"}</script>`
	_, err := JSONLD{}.Extract(mustPage(t, html, "https://example.com/p"))
	assert.ErrorIs(t, err, ErrNoCandidate)
}
