package boltpage

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sanitizer neutralizes unsafe markup before HTML reaches the cache. It is
// total and idempotent: unsafe content is rewritten or stripped, never
// rejected as an error.
//
// Two structural passes run in order. The first walks a real HTML parse
// tree and rewrites link and image targets with disallowed URL schemes,
// keeping the elements in place so document structure survives. The second
// applies an allow-list policy that strips script-executing elements and
// event-handler attributes while letting the highlighted class markup and
// safe structural tags through unchanged.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a Sanitizer with the viewer policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("div", "pre", "code", "span")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("href", "rel", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	// GFM task-list checkboxes.
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	// ==text== highlight syntax renders as <mark>.
	p.AllowElements("mark")
	p.AllowDataURIImages()
	return &Sanitizer{policy: p}
}

// Sanitize returns a safe version of html. Output never contains <script>,
// event-handler attributes, or javascript: URLs.
func (s *Sanitizer) Sanitize(input string) string {
	return s.policy.Sanitize(rewriteURLs(input))
}

// rewriteURLs neutralizes disallowed hyperlink and image targets on a parse
// tree rather than by substring search, so quoting and case variations
// cannot slip through. Parse failures fall through to the policy pass
// untouched.
func rewriteURLs(input string) string {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(input), ctx)
	if err != nil {
		return input
	}
	var b strings.Builder
	for _, n := range nodes {
		rewriteNode(n)
		if err := html.Render(&b, n); err != nil {
			return input
		}
	}
	return b.String()
}

func rewriteNode(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.A:
			for i, a := range n.Attr {
				// Disallowed schemes become a harmless placeholder; the link
				// element stays so document structure is preserved.
				if strings.EqualFold(a.Key, "href") && !safeLinkURL(a.Val) {
					n.Attr[i].Val = "#"
				}
			}
		case atom.Img:
			for i, a := range n.Attr {
				// Disallowed sources are blanked, not removed, so the
				// element remains structurally present.
				if strings.EqualFold(a.Key, "src") && !safeImageURL(a.Val) {
					n.Attr[i].Val = ""
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c)
	}
}

// safeLinkURL permits http, https, and mailto targets plus scheme-less
// relative references. Everything else (javascript:, data:, file:, ...)
// is unsafe.
func safeLinkURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}

// safeImageURL permits http, https, data:image/* and scheme-less relative
// sources.
func safeImageURL(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "", "http", "https":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(trimmed), "data:image/")
	}
	return false
}
