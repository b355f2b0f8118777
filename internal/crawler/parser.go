package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// staticAnchors are navigation links generated by common directory listing
// modules (Apache mod_autoindex, nginx autoindex) that never lead deeper
// into the tree: the parent directory, the server root and the column sort
// links.
var staticAnchors = map[string]bool{
	"../":      true,
	"/":        true,
	"?C=N;O=D": true,
	"?C=M;O=A": true,
	"?C=S;O=A": true,
	"?C=D;O=A": true,
}

// IsBadAnchor reports whether href should not be followed.
// Fragments and absolute-path links are rejected because they either point
// back into the same page or escape the directory tree being crawled.
func IsBadAnchor(href string) bool {
	if href == "" {
		return true
	}
	if staticAnchors[href] {
		return true
	}
	return strings.HasPrefix(href, "#") || strings.HasPrefix(href, "/")
}

// ExtractLinks returns the followable href values of every anchor in an
// HTML document, once per occurrence and in document order. Callers should
// treat the result as a set.
//
// Design decision: We parse with golang.org/x/net/html and select with
// goquery rather than scanning with a regex because:
//  1. The HTML5 parser recovers from the malformed markup many listing
//     generators emit
//  2. goquery's selector keeps the anchor lookup to a single expression
//
// Only errors from reading r are returned; malformed HTML is not an error.
func ExtractLinks(r io.Reader) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0)
	goquery.NewDocumentFromNode(root).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if IsBadAnchor(href) {
			return
		}
		if href = strings.TrimSpace(href); href == "" {
			return
		}
		links = append(links, href)
	})

	return links, nil
}

// Parser extracts followable links from a listing page and resolves them
// against the page URL.
type Parser struct {
	// baseURL is the URL of the listing, used for resolving relative hrefs.
	baseURL *url.URL
}

// newParser creates a new Parser for the listing at baseURL.
// A directory URL without a trailing slash is treated as if it had one, so
// that "a.txt" found on "http://h/pub" resolves to "http://h/pub/a.txt".
func newParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return newParserFromURL(u), nil
}

func newParserFromURL(u *url.URL) *Parser {
	base := *u
	base.Fragment = ""
	base.RawQuery = ""
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		base.RawPath = ""
	}
	return &Parser{baseURL: &base}
}

// Parse reads an HTML listing and returns the absolute URLs of its
// followable links.
func (p *Parser) Parse(content io.Reader) ([]string, error) {
	hrefs, err := ExtractLinks(content)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		if resolved := p.resolveURL(href); resolved != "" {
			links = append(links, resolved)
		}
	}
	return links, nil
}

// resolveURL resolves a relative URL against the base URL.
// Links that do not resolve to an http(s) URL are discarded.
func (p *Parser) resolveURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
