package extractor

import (
	"errors"
	"strings"

	"github.com/use-agent/prodex/cleaner"
	"github.com/use-agent/prodex/models"
)

// ErrNoCandidate is returned by a strategy that found nothing usable.
var ErrNoCandidate = errors.New("extractor: no product candidate")

// Strategy locates a product candidate on a page and normalizes it.
// Implementations are stateless and safe for concurrent use.
type Strategy interface {
	// Name returns the strategy identifier (e.g. "jsonld", "opengraph").
	Name() string

	// Extract returns a normalized product, or an error when the page
	// carries no candidate of this strategy's shape.
	Extract(p *Page) (*models.Product, error)
}

// finalize applies the shared normalization rules to a record built by a
// strategy: every free-text field is reduced to plain text, currency gets
// its default and an empty full title falls back to the name.
func finalize(prod *models.Product) *models.Product {
	prod.Name = cleaner.Text(prod.Name)
	prod.Subtitle = cleaner.Text(prod.Subtitle)
	prod.FullTitle = cleaner.Text(prod.FullTitle)
	prod.Description = cleaner.Text(prod.Description)
	prod.Brand = cleaner.Text(prod.Brand)
	prod.Category = cleaner.Text(prod.Category)
	prod.ColorDescription = cleaner.Text(prod.ColorDescription)
	prod.StyleColor = cleaner.Text(prod.StyleColor)
	prod.ProductType = cleaner.Text(prod.ProductType)
	prod.Currency = cleaner.Currency(prod.Currency)
	if prod.FullTitle == "" {
		prod.FullTitle = prod.Name
	}
	if prod.Image != nil && strings.TrimSpace(*prod.Image) == "" {
		prod.Image = nil
	}
	return prod
}

// unknownProduct is the name used when a structured candidate was found
// but carries no title of its own.
const unknownProduct = "Unknown Product"
