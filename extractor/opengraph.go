package extractor

import (
	"strings"

	"github.com/dyatlov/go-opengraph/opengraph"

	"github.com/use-agent/prodex/cleaner"
	"github.com/use-agent/prodex/models"
)

// OpenGraph builds a record from Open Graph and plain meta tags. It is the
// last resort and never fails; the record it returns may have an empty
// name, which callers must treat as "nothing found".
type OpenGraph struct{}

func (OpenGraph) Name() string { return "opengraph" }

func (OpenGraph) Extract(p *Page) (*models.Product, error) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(p.HTML)); err != nil {
		// Tokenizer errors only; the goquery meta index below still works.
		og = opengraph.NewOpenGraph()
	}

	title := firstNonBlank(og.Title, p.Meta("og:title"), p.MetaName("title"))
	description := firstNonBlank(og.Description, p.Meta("og:description"), p.MetaName("description"))
	siteName := firstNonBlank(og.SiteName, p.Meta("og:site_name"))

	var image string
	if len(og.Images) > 0 && og.Images[0] != nil {
		image = og.Images[0].URL
	}
	image = firstNonBlank(image, p.Meta("og:image"))

	return finalize(&models.Product{
		Name:             title,
		FullTitle:        title,
		Description:      description,
		Brand:            firstNonBlank(p.Meta("product:brand"), siteName),
		Category:         p.Meta("product:category"),
		Price:            cleaner.Price(firstNonBlank(p.Meta("product:price:amount"), p.Meta("og:price:amount"))),
		Currency:         firstNonBlank(p.Meta("product:price:currency"), p.Meta("og:price:currency")),
		Image:            p.imageRef(image),
		ColorDescription: p.Meta("product:color"),
		IsAvailable:      true,
		URL:              p.URL,
	}), nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
