// Package scrape fetches third-party product pages and extracts prices from
// them via CSS selectors.
package scrape

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrSelectorNotFound is returned when the selector matches no element or the
// matched element has no text content.
var ErrSelectorNotFound = errors.New("selector matched no price element")

// ErrPriceFormat is returned when the selected text does not normalize to a
// finite number.
var ErrPriceFormat = errors.New("price text is not a valid number")

// Price extracts a numeric price from HTML markup. It takes the text of the
// first element matching selector, normalizes it (the first comma becomes a
// decimal point, everything that is not a digit or dot is stripped), and
// parses the remainder as a float.
//
// The function is pure: identical inputs always yield identical results.
func Price(markup []byte, selector string) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return 0, fmt.Errorf("parsing markup: %w", err)
	}

	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return 0, fmt.Errorf("%w: %q", ErrSelectorNotFound, selector)
	}

	return parsePriceText(text)
}

// parsePriceText normalizes raw element text into a price value.
func parsePriceText(text string) (float64, error) {
	// Locale tolerance: "13,99" means 13.99.
	normalized := strings.Replace(text, ",", ".", 1)
	normalized = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, normalized)

	price, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, fmt.Errorf("%w: %q", ErrPriceFormat, text)
	}

	return price, nil
}
