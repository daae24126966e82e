package extractor

import "strings"

var (
	// nikeChain skips the generic embedded-JSON heuristic: the vendor
	// strategy has already read the same blob.
	nikeChain = []Strategy{Nike{}, JSONLD{}, OpenGraph{}}

	defaultChain = []Strategy{JSONLD{}, NextData{}, OpenGraph{}}
)

// Route returns the ordered strategy chain for a page host. The returned
// slice is a fresh copy and may be modified by the caller.
func Route(host string) []Strategy {
	chain := defaultChain
	if hostMatches(host, "nike.com") {
		chain = nikeChain
	}
	out := make([]Strategy, len(chain))
	copy(out, chain)
	return out
}

// hostMatches reports whether host is domain or one of its subdomains,
// ignoring case and a trailing root dot.
func hostMatches(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	return host == domain || strings.HasSuffix(host, "."+domain)
}
