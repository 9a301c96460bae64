package dice

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"dicescraper/pkg/models"
	"github.com/PuerkitoBio/goquery"
)

const (
	listingCardSelector  = `div[role="listitem"]`
	listingTitleSelector = `a[data-testid="job-search-job-detail-link"]`
	paginationSelector   = `section[aria-label*="Page"]`
)

var digits = regexp.MustCompile(`\d+`)

// ListingExtractor parses search result pages. Relative job links are
// resolved against BaseURL.
type ListingExtractor struct {
	BaseURL string
}

// NewListingExtractor creates an extractor resolving links against base
func NewListingExtractor(base string) *ListingExtractor {
	return &ListingExtractor{BaseURL: base}
}

// ExtractListing returns the total page count and at most limit job stubs.
// Unparseable HTML yields one page and no jobs.
func (e *ListingExtractor) ExtractListing(html string, limit int) (int, []models.JobStub) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 1, nil
	}
	return totalPages(doc), e.jobs(doc, limit)
}

// ExtractTotalPages reads the "Page x of N" pagination label, defaulting to 1
func ExtractTotalPages(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 1
	}
	return totalPages(doc)
}

// ExtractJobs returns at most limit job stubs; limit <= 0 means no cap
func ExtractJobs(html string, limit int) []models.JobStub {
	_, jobs := NewListingExtractor(BaseURL).ExtractListing(html, limit)
	return jobs
}

func totalPages(doc *goquery.Document) int {
	section := doc.Find(paginationSelector).First()
	if section.Length() == 0 {
		return 1
	}

	text := section.Text()
	idx := strings.LastIndex(text, "of")
	if idx < 0 {
		return 1
	}

	n, err := strconv.Atoi(digits.FindString(text[idx+len("of"):]))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (e *ListingExtractor) jobs(doc *goquery.Document, limit int) []models.JobStub {
	cards := doc.Find(listingCardSelector)
	if limit > 0 && cards.Length() > limit {
		cards = cards.Slice(0, limit)
	}

	jobs := make([]models.JobStub, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		stub := models.NewJobStub()

		if title := card.Find(listingTitleSelector).First(); title.Length() > 0 {
			stub.Title = orUnavailable(cleanText(title.Text()))
			if href, ok := title.Attr("href"); ok && strings.TrimSpace(href) != "" {
				stub.URL = e.resolve(strings.TrimSpace(href))
			}
		}

		if company := card.Find("p.text-sm").First(); company.Length() > 0 {
			stub.Company = orUnavailable(cleanText(company.Text()))
		}

		location := card.Find("p").FilterFunction(func(_ int, p *goquery.Selection) bool {
			return strings.Contains(p.Text(), ",")
		}).First()
		if location.Length() > 0 {
			stub.Location = orUnavailable(cleanText(location.Text()))
		}

		jobs = append(jobs, stub)
	})
	return jobs
}

func (e *ListingExtractor) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() || e.BaseURL == "" {
		return ref.String()
	}
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func orUnavailable(s string) string {
	if s == "" {
		return models.Unavailable
	}
	return s
}
