package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var locationSelectors = []string{
	".location",
	".opening .location",
	".job__location",
	".app-title + .location",
	"[itemprop='jobLocation']",
	"[data-qa='location']",
	"[data-testid='job-location']",
	".posting-categories .location",
}

// FindLocation looks for a location on a job detail page: known selectors
// first, then a "Location:" label in og:description or the body text.
func FindLocation(doc *goquery.Document) string {
	for _, sel := range locationSelectors {
		if t := CleanText(doc.Find(sel).First().Text()); t != "" {
			return NormalizeLocation(t)
		}
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if loc := ExtractLocationFromLabeledText(v); loc != "" {
			return NormalizeLocation(loc)
		}
	}

	if loc := ExtractLocationFromLabeledText(doc.Find("body").Text()); loc != "" {
		return NormalizeLocation(loc)
	}
	return ""
}

// ExtractLocationFromLabeledText returns the text after a "Location:" style
// label, cut at the first line or field break.
func ExtractLocationFromLabeledText(s string) string {
	low := strings.ToLower(s)
	for _, lab := range []string{"job location:", "locations:", "location:"} {
		i := strings.Index(low, lab)
		if i < 0 {
			continue
		}
		rest := s[i+len(lab):]
		rest = strings.TrimLeft(rest, " \t")
		for _, cut := range []string{"\n", "\r", " | ", " · "} {
			if j := strings.Index(rest, cut); j >= 0 {
				rest = rest[:j]
			}
		}
		rest = CleanText(rest)
		if rest != "" && len(rest) <= 80 {
			return rest
		}
	}
	return ""
}
