package extractor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	jsonLDSelector   = cascadia.MustCompile(`script[type="application/ld+json" i]`)
	nextDataSelector = cascadia.MustCompile(`script#__NEXT_DATA__`)
	metaSelector     = cascadia.MustCompile(`meta[content]`)
)

// Page is one fetched product page, parsed once and shared by every
// strategy tried during a single extraction. It memoizes the embedded
// state blob so the vendor and generic strategies don't decode it twice.
// A Page must not be shared between goroutines.
type Page struct {
	URL  string
	Host string
	HTML string

	base *url.URL
	doc  *goquery.Document

	blob      *Blob
	blobErr   error
	blobReady bool

	meta *metaIndex
}

// NewPage parses rawHTML. pageURL is used for relative image resolution
// and echoed into every record.
func NewPage(rawHTML, pageURL string) (*Page, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse html: %w", err)
	}
	p := &Page{
		URL:  pageURL,
		HTML: rawHTML,
		doc:  goquery.NewDocumentFromNode(root),
	}
	if u, err := url.Parse(pageURL); err == nil {
		p.base = u
		p.Host = strings.ToLower(u.Hostname())
	}
	return p, nil
}

// JSONLDBlocks returns the raw text of every JSON-LD script block in
// document order.
func (p *Page) JSONLDBlocks() []string {
	var blocks []string
	p.doc.FindMatcher(jsonLDSelector).Each(func(_ int, s *goquery.Selection) {
		if body := strings.TrimSpace(s.Text()); body != "" {
			blocks = append(blocks, body)
		}
	})
	return blocks
}

// Blob is the decoded embedded page-state JSON (Next.js __NEXT_DATA__).
type Blob struct {
	Raw  []byte
	Tree any
}

// Keys returns the member names of the object at path in document order.
func (b *Blob) Keys(path string) []string {
	return orderedKeys(b.Raw, path)
}

// NextData locates and decodes the embedded state blob. Absence and
// malformed JSON are both reported as errors.
func (p *Page) NextData() (*Blob, error) {
	if p.blobReady {
		return p.blob, p.blobErr
	}
	p.blobReady = true

	sel := p.doc.FindMatcher(nextDataSelector).First()
	if sel.Length() == 0 {
		p.blobErr = fmt.Errorf("%w: no __NEXT_DATA__ script", ErrNoCandidate)
		return nil, p.blobErr
	}
	raw := []byte(strings.TrimSpace(sel.Text()))
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		p.blobErr = fmt.Errorf("extractor: decode __NEXT_DATA__: %w", err)
		return nil, p.blobErr
	}
	p.blob = &Blob{Raw: raw, Tree: tree}
	return p.blob, nil
}

// metaIndex holds the first non-empty content of every <meta> tag, keyed
// by lower-cased property and name attributes separately.
type metaIndex struct {
	property map[string]string
	name     map[string]string
}

// Meta returns the content of the first <meta property=key> tag, matched
// case-insensitively. Attribute order in the markup is irrelevant.
func (p *Page) Meta(property string) string {
	return p.metaIndex().property[strings.ToLower(property)]
}

// MetaName is Meta for <meta name=key> tags.
func (p *Page) MetaName(name string) string {
	return p.metaIndex().name[strings.ToLower(name)]
}

func (p *Page) metaIndex() *metaIndex {
	if p.meta != nil {
		return p.meta
	}
	idx := &metaIndex{property: map[string]string{}, name: map[string]string{}}
	p.doc.FindMatcher(metaSelector).Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		if prop := strings.ToLower(strings.TrimSpace(s.AttrOr("property", ""))); prop != "" {
			if _, seen := idx.property[prop]; !seen {
				idx.property[prop] = content
			}
		}
		if name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", ""))); name != "" {
			if _, seen := idx.name[name]; !seen {
				idx.name[name] = content
			}
		}
	})
	p.meta = idx
	return idx
}

// ResolveURL makes ref absolute against the page URL. Unparseable input
// is returned trimmed but otherwise untouched.
func (p *Page) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || p.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return p.base.ResolveReference(u).String()
}

// imageRef resolves ref into an image pointer, nil for blank input.
func (p *Page) imageRef(ref string) *string {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	s := p.ResolveURL(ref)
	return &s
}
