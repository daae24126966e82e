// Package extractor recovers a normalized product record from arbitrary
// e-commerce HTML.
//
// Each source shape (schema.org JSON-LD, a vendor's embedded page state,
// a generic Next.js state blob, Open Graph meta tags) is handled by one
// Strategy that owns both locating its candidate and normalizing it into
// a models.Product. Route maps a hostname to the ordered list of
// strategies to try; the caller walks that list and keeps the first
// record with a name.
package extractor
