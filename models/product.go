package models

import "time"

// Product is the normalized product record every extraction strategy
// converges on. Price and Image are nil when the source did not carry a
// usable value; free-text fields never contain markup.
type Product struct {
	Name             string   `json:"name"`
	Subtitle         string   `json:"subtitle"`
	FullTitle        string   `json:"fullTitle"`
	Description      string   `json:"description"`
	Brand            string   `json:"brand"`
	Category         string   `json:"category"`
	Price            *float64 `json:"price"`
	Currency         string   `json:"currency"`
	Image            *string  `json:"image"`
	ColorDescription string   `json:"colorDescription"`
	StyleColor       string   `json:"styleColor"`
	ProductType      string   `json:"productType"`
	IsAvailable      bool     `json:"isAvailable"`
	URL              string   `json:"url"`
}

// DefaultCurrency is used whenever a source carries no currency code.
const DefaultCurrency = "USD"

// Extraction pairs a product with the strategy that produced it.
type Extraction struct {
	Product  *Product
	Strategy string

	// FetchDuration is the time spent retrieving the page.
	FetchDuration time.Duration
}
