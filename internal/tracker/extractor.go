// Package tracker provides update-date extraction from storefront detail pages.
package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrDateNotFound is returned when no strategy recovers a date from a page
var ErrDateNotFound = errors.New("date not found on page")

// StrategyFunc recovers a candidate marker from raw markup.
// It returns false when the strategy does not apply or yields nothing.
type StrategyFunc func(markup []byte) (string, bool)

// Strategy is a named extraction step.
type Strategy struct {
	Name    string
	Extract StrategyFunc
}

// Extraction is a successfully recovered marker and the strategy that found it.
type Extraction struct {
	Marker   string
	Strategy string
}

// DefaultStrategies returns the extraction chain in priority order.
// The visible label is more authoritative than embedded metadata on the
// storefront layout, and both beat a blind page scan.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "label", Extract: LabelStrategy},
		{Name: "metadata", Extract: MetadataStrategy},
		{Name: "scan", Extract: ScanStrategy},
	}
}

// Extractor runs an ordered strategy chain; the first non-empty result wins.
type Extractor struct {
	Strategies []Strategy
}

// NewExtractor creates an Extractor with the default strategy chain.
func NewExtractor() *Extractor {
	return &Extractor{Strategies: DefaultStrategies()}
}

// Extract returns the marker found by the first successful strategy.
func (e *Extractor) Extract(markup []byte) (Extraction, error) {
	for _, s := range e.Strategies {
		marker, ok := s.Extract(markup)
		if !ok {
			continue
		}
		marker = collapseSpace(marker)
		if marker == "" {
			continue
		}
		return Extraction{Marker: marker, Strategy: s.Name}, nil
	}
	return Extraction{}, ErrDateNotFound
}

// labelPattern matches the caption printed next to the update date.
var labelPattern = regexp.MustCompile(`(?i)^(last\s+updated|updated\s+on|updated)\s*:?$`)

// LabelStrategy finds an element whose own text is an "Updated on" caption
// and returns the text of its next sibling element.
func LabelStrategy(markup []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("body *").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !labelPattern.MatchString(ownText(sel)) {
			return true
		}
		text := strings.TrimSpace(sel.Next().Text())
		if text == "" {
			return true
		}
		found = text
		return false
	})

	return found, found != ""
}

// ownText concatenates the direct text children of the selection's first node.
func ownText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for c := sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return collapseSpace(b.String())
}

// MetadataStrategy looks for a dateModified field in JSON-LD payloads,
// then in microdata meta tags.
func MetadataStrategy(markup []byte) (string, bool) {
	doc, err := htmlquery.Parse(bytes.NewReader(markup))
	if err != nil {
		return "", false
	}

	scripts, err := htmlquery.QueryAll(doc, `//script[@type="application/ld+json"]`)
	if err == nil {
		for _, node := range scripts {
			var payload interface{}
			if err := json.Unmarshal([]byte(htmlquery.InnerText(node)), &payload); err != nil {
				continue
			}
			if value, ok := findDateModified(payload); ok {
				return value, true
			}
		}
	}

	metas, err := htmlquery.QueryAll(doc, `//meta[@itemprop="dateModified"]`)
	if err == nil {
		for _, node := range metas {
			if value := strings.TrimSpace(htmlquery.SelectAttr(node, "content")); value != "" {
				return value, true
			}
		}
	}

	return "", false
}

// findDateModified walks a decoded JSON value depth-first for a non-empty
// string stored under a "dateModified" key.
func findDateModified(v interface{}) (string, bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		for key, child := range val {
			if !isDateModifiedKey(key) {
				continue
			}
			if s, ok := child.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if s, ok := findDateModified(val[key]); ok {
				return s, true
			}
		}
	case []interface{}:
		for _, child := range val {
			if s, ok := findDateModified(child); ok {
				return s, true
			}
		}
	}
	return "", false
}

func isDateModifiedKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(key))
	return k == "datemodified"
}

// blockElements are the elements scanned for a date-shaped text.
const blockElements = "p, div, section, article, header, footer, li, dd, dt, td, th, h1, h2, h3, h4, h5, h6, span"

// ScanStrategy returns the first date-shaped text found in a block element,
// in document order.
func ScanStrategy(markup []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return "", false
	}
	doc.Find("script, style, noscript, template").Remove()

	var found string
	doc.Find(blockElements).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if match, ok := FindDate(blockText(sel)); ok {
			found = match
			return false
		}
		return true
	})

	return found, found != ""
}

// blockText joins every descendant text node of the selection's first node
// with a space, so text of adjacent children never runs together.
func blockText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				parts = append(parts, c.Data)
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(sel.Get(0))
	return collapseSpace(strings.Join(parts, " "))
}

// collapseSpace trims s and folds internal whitespace runs into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
