package dice

import (
	"strings"

	"dicescraper/pkg/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Detail field names
const (
	FieldError                = "error"
	FieldCompanyName          = "Company Name"
	FieldCompanyLink          = "Company Link"
	FieldJobTitle             = "Job Title"
	FieldLocation             = "Location"
	FieldPostedDate           = "Posted Date"
	FieldPositionTypes        = "Position Types"
	FieldWorkArrangement      = "Work Arrangement"
	FieldPayInformation       = "Pay Information"
	FieldOtherBadges          = "Other Badges"
	FieldEmploymentType       = "Employment Type"
	FieldPay                  = "Pay"
	FieldTravelRequirements   = "Travel Requirements"
	FieldPrimarySkillSet      = "Primary Skill Set"
	FieldJobDescription       = "Job Description"
	FieldRecruiterName        = "Recruiter Name"
	FieldRecruiterTitle       = "Recruiter Title"
	FieldRecruiterCompany     = "Recruiter Company"
	FieldRecruiterProfileLink = "Recruiter Profile Link"
)

// ErrNoHeaderCard is the error value reported when a detail page lacks the
// job header card.
const ErrNoHeaderCard = "No job header card found"

const (
	headerCardSelector  = `div[data-testid="job-detail-header-card"]`
	metaSpanSelector    = `span[class*="text-font-light"]`
	badgeSelector       = `div.SeuiInfoBadge`
	overviewSelector    = `div[class*="job-overview_detailContainer"]`
	chipSelector        = `div[class*="chip_chip"]`
	descriptionSelector = `div[class*="job-detail-description-module"]`
	recruiterSelector   = `div[class*="rounded-3xl"][class*="flex-1"]`
	metaSeparator       = "•"
)

var (
	positionTypeKeywords    = []string{"c2c", "corp to corp", "corp", "w2", "independent", "contract"}
	workArrangementKeywords = []string{"on-site", "onsite", "hybrid", "remote", "days"}
	payKeywords             = []string{"hr", "hour", "pay", "rate"}
)

// IsPositionType reports whether a badge describes the engagement type
func IsPositionType(badge string) bool {
	return containsAny(matchKey(badge), positionTypeKeywords)
}

// IsWorkArrangement reports whether a badge describes where the work happens
func IsWorkArrangement(badge string) bool {
	return containsAny(matchKey(badge), workArrangementKeywords)
}

// IsPayInfo reports whether a badge carries pay or rate information
func IsPayInfo(badge string) bool {
	return strings.Contains(badge, "$") || containsAny(matchKey(badge), payKeywords)
}

// DetailExtractor parses job detail pages into an ordered field list
type DetailExtractor struct {
	policy *bluemonday.Policy
}

// NewDetailExtractor creates an extractor. Descriptions are sanitized down
// to block-level structure before their text is read.
func NewDetailExtractor() *DetailExtractor {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br", "div", "span", "ul", "ol", "li")
	policy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6", "strong", "b", "em", "i")
	return &DetailExtractor{policy: policy}
}

// ExtractDetail never fails: missing elements produce NotAvailable values and
// a page without a header card produces a single error field.
func (d *DetailExtractor) ExtractDetail(page string) []models.Field {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return []models.Field{{Key: FieldError, Value: ErrNoHeaderCard}}
	}

	header := doc.Find(headerCardSelector).First()
	if header.Length() == 0 {
		return []models.Field{{Key: FieldError, Value: ErrNoHeaderCard}}
	}

	var fields []models.Field
	fields = append(fields, companyInfo(header)...)
	fields = append(fields, jobTitle(header))
	fields = append(fields, locationPosted(header)...)
	fields = append(fields, classifyBadges(header)...)
	fields = append(fields, d.overview(doc)...)
	fields = append(fields, recruiter(doc)...)
	return fields
}

// ParseDetail is a convenience wrapper around a default DetailExtractor
func ParseDetail(page string) []models.Field {
	return NewDetailExtractor().ExtractDetail(page)
}

func textOr(sel *goquery.Selection, fallback string) string {
	if sel.Length() == 0 {
		return fallback
	}
	if t := cleanText(sel.Text()); t != "" {
		return t
	}
	return fallback
}

func companyInfo(header *goquery.Selection) []models.Field {
	link := header.Find("a[href]").First()
	name, href := models.NotAvailable, models.NotAvailable
	if link.Length() > 0 {
		name = cleanText(link.Text())
		href = strings.TrimSpace(link.AttrOr("href", models.NotAvailable))
	}
	return []models.Field{
		{Key: FieldCompanyName, Value: name},
		{Key: FieldCompanyLink, Value: href},
	}
}

func jobTitle(header *goquery.Selection) models.Field {
	return models.Field{Key: FieldJobTitle, Value: textOr(header.Find("h1").First(), models.NotAvailable)}
}

func locationPosted(header *goquery.Selection) []models.Field {
	location, posted := models.NotAvailable, models.NotAvailable

	if span := header.Find(metaSpanSelector).First(); span.Length() > 0 {
		parts := strings.Split(cleanText(span.Text()), metaSeparator)
		location = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			posted = strings.TrimSpace(parts[1])
		}
	}

	return []models.Field{
		{Key: FieldLocation, Value: location},
		{Key: FieldPostedDate, Value: posted},
	}
}

func classifyBadges(header *goquery.Selection) []models.Field {
	var positions, arrangements, pay, other []string

	header.Find(badgeSelector).Each(func(_ int, badge *goquery.Selection) {
		text := cleanText(badge.Text())
		switch {
		case IsPositionType(text):
			positions = append(positions, text)
		case IsWorkArrangement(text):
			arrangements = append(arrangements, text)
		case IsPayInfo(text):
			pay = append(pay, text)
		default:
			other = append(other, text)
		}
	})

	return []models.Field{
		{Key: FieldPositionTypes, Value: listOrNotAvailable(positions)},
		{Key: FieldWorkArrangement, Value: listOrNotAvailable(arrangements)},
		{Key: FieldPayInformation, Value: listOrNotAvailable(pay)},
		{Key: FieldOtherBadges, Value: listOrNotAvailable(other)},
	}
}

func listOrNotAvailable(items []string) interface{} {
	if len(items) == 0 {
		return models.NotAvailable
	}
	return items
}

func (d *DetailExtractor) overview(doc *goquery.Document) []models.Field {
	chips := models.NewRecord()
	doc.Find(overviewSelector).Each(func(_ int, container *goquery.Selection) {
		container.Find(chipSelector).Each(func(_ int, chip *goquery.Selection) {
			text := cleanText(chip.Text())
			switch {
			case strings.Contains(text, "Contract"):
				chips.Set(FieldEmploymentType, text)
			case strings.Contains(text, "$"):
				chips.Set(FieldPay, text)
			case strings.Contains(text, "Hybrid") || strings.Contains(text, "days"):
				chips.Set(FieldWorkArrangement, text)
			case strings.Contains(text, "Travel"):
				chips.Set(FieldTravelRequirements, text)
			}
		})
	})

	fields := chips.Fields()
	fields = append(fields, models.Field{Key: FieldPrimarySkillSet, Value: skills(doc)})
	fields = append(fields, models.Field{Key: FieldJobDescription, Value: d.description(doc)})
	return fields
}

func skills(doc *goquery.Document) []string {
	out := []string{}

	heading := doc.Find("h3").FilterFunction(func(_ int, h *goquery.Selection) bool {
		return strings.Contains(h.Text(), "Skills")
	}).First()
	if heading.Length() == 0 {
		return out
	}

	list := heading.NextAllFiltered("ul").First()
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		if div := li.Find(`div[class*="font-medium"]`).First(); div.Length() > 0 {
			out = append(out, cleanText(div.Text()))
		}
	})
	return out
}

func (d *DetailExtractor) description(doc *goquery.Document) string {
	desc := doc.Find(descriptionSelector).First()
	if desc.Length() == 0 {
		return models.NotAvailable
	}

	raw, err := goquery.OuterHtml(desc)
	if err != nil {
		return models.NotAvailable
	}

	clean, err := goquery.NewDocumentFromReader(strings.NewReader(d.policy.Sanitize(raw)))
	if err != nil {
		return models.NotAvailable
	}

	var lines []string
	collectText(clean.Find("body"), &lines)
	if len(lines) == 0 {
		return models.NotAvailable
	}
	return strings.Join(lines, "\n")
}

// collectText appends the non-blank text nodes under sel in document order
func collectText(sel *goquery.Selection, lines *[]string) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			if t := cleanText(child.Text()); t != "" {
				*lines = append(*lines, t)
			}
			return
		}
		collectText(child, lines)
	})
}

func recruiter(doc *goquery.Document) []models.Field {
	name, title, profile := models.NotAvailable, models.NotAvailable, models.NotAvailable

	container := doc.Find(recruiterSelector).First()
	if container.Length() > 0 {
		name = textOr(container.Find("h4").First(), models.NotAvailable)
		title = textOr(container.Find(`span[class*="text-sm"]`).First(), models.NotAvailable)

		link := container.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return strings.Contains(a.Text(), "View Profile")
		}).First()
		if link.Length() > 0 {
			profile = strings.TrimSpace(link.AttrOr("href", models.NotAvailable))
		}
	}

	return []models.Field{
		{Key: FieldRecruiterName, Value: name},
		{Key: FieldRecruiterTitle, Value: title},
		{Key: FieldRecruiterCompany, Value: companyFromTitle(title)},
		{Key: FieldRecruiterProfileLink, Value: profile},
	}
}

// companyFromTitle extracts "Company" from "Role @ Company", returning the
// title unchanged when it has no "@".
func companyFromTitle(title string) string {
	if strings.Contains(title, "@") && !strings.Contains(title, models.NotAvailable) {
		return strings.TrimSpace(title[strings.LastIndex(title, "@")+1:])
	}
	return title
}
