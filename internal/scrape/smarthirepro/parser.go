package smarthirepro

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/normalize"
	"jobsync-engine/internal/scrape/util"
)

// ParseListing reads the job cards of a company listing page. Links are
// resolved against base.
func ParseListing(doc *goquery.Document, base string) []domain.Record {
	var out []domain.Record
	doc.Find("a.block-link").Each(func(_ int, a *goquery.Selection) {
		card := a.Find(".job-listing")
		spans := card.Find(".job__company span")

		title := util.CleanText(card.Find(".job__title").Text())
		r := domain.Record{
			Title:       title,
			Company:     util.CleanText(spans.First().Text()),
			Type:        util.CleanText(spans.Last().Text()),
			RawDeadline: util.CleanText(card.Find(".job__deadline").Text()),
			Tags:        normalize.DetectTags(title),
		}
		if spans.Length() < 2 {
			r.Type = ""
		}
		if href, ok := a.Attr("href"); ok {
			r.Link = util.Resolve(base, href)
		}
		out = append(out, r)
	})
	return out
}

// Detail holds the labelled facts of a job detail page.
type Detail struct {
	PostedDate string
	Type       string
	Experience string
	Deadline   string
}

// ParseDetail reads the "<strong>Label:</strong> <span>value</span>" list
// of a detail page.
func ParseDetail(doc *goquery.Document) Detail {
	var d Detail
	doc.Find(".list-unstyled li").Each(func(_ int, li *goquery.Selection) {
		label := strings.TrimSuffix(util.CleanText(li.Find("strong").Text()), ":")
		value := util.CleanText(li.Find("span").Text())
		switch label {
		case "Date Posted":
			d.PostedDate = value
		case "Employment Type":
			d.Type = value
		case "Experience":
			d.Experience = value
		case "Deadline":
			d.Deadline = value
		}
	})
	return d
}

// Apply copies the non-empty detail facts onto r.
func (d Detail) Apply(r *domain.Record) {
	if d.PostedDate != "" {
		r.RawPostedDate = d.PostedDate
	}
	if d.Type != "" {
		r.Type = d.Type
	}
	if d.Experience != "" {
		r.Experience = d.Experience
	}
	if d.Deadline != "" {
		r.RawDeadline = d.Deadline
	}
}
