// Package extract implements the ordered article-body extraction strategies
// and the text normalization applied to their output.
package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Strategy attempts to pull the article body out of a fetched page. ok is
// false when the strategy found nothing usable.
type Strategy interface {
	Name() string
	Extract(body []byte, pageURL *url.URL) (text string, ok bool)
}

// Chain tries strategies in order; the first non-empty result wins.
type Chain []Strategy

// Extract runs the chain. It reports which strategy matched so callers can
// log layout drift.
func (c Chain) Extract(body []byte, pageURL *url.URL) (text, strategy string, ok bool) {
	for _, s := range c {
		if out, found := s.Extract(body, pageURL); found {
			return out, s.Name(), true
		}
	}
	return "", "", false
}

// Selector extracts the text of the first element matching a CSS selector.
type Selector struct {
	selector string
}

// NewSelector builds a selector strategy.
func NewSelector(selector string) Selector {
	return Selector{selector: selector}
}

// Name returns the CSS selector.
func (s Selector) Name() string { return s.selector }

// Extract parses the body and returns the first match's text content.
func (s Selector) Extract(body []byte, _ *url.URL) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	sel := doc.Find(s.selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	text := sel.Text()
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// Readability extracts the main content using the readability heuristics.
// Useful as a trailing fallback for layouts the site selectors miss.
type Readability struct{}

// Name identifies the strategy.
func (Readability) Name() string { return "readability" }

// Extract runs readability over the page.
func (Readability) Extract(body []byte, pageURL *url.URL) (string, bool) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", false
	}
	return text, true
}

// DefaultChain is the selector policy for UOL article pages: the modern
// "text" class first, then the legacy "texto" id.
func DefaultChain() Chain {
	return NewChain([]string{"div.text", "div#texto"}, false)
}

// NewChain builds a chain from CSS selectors, optionally appending the
// readability fallback.
func NewChain(selectors []string, readabilityFallback bool) Chain {
	chain := make(Chain, 0, len(selectors)+1)
	for _, sel := range selectors {
		chain = append(chain, NewSelector(sel))
	}
	if readabilityFallback {
		chain = append(chain, Readability{})
	}
	return chain
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace runs to single spaces, trims, and
// lower-cases the extracted text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " ")))
}
