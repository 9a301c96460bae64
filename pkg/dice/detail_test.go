package dice

import (
	"testing"

	"dicescraper/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsToRecord(fields []models.Field) *models.Record {
	rec := models.NewRecord()
	rec.Merge(fields)
	return rec
}

func TestExtractDetail(t *testing.T) {
	rec := fieldsToRecord(NewDetailExtractor().ExtractDetail(readFixture(t, "detail.html")))

	expectStrings := map[string]string{
		FieldCompanyName:          "Techridge, Inc.",
		FieldCompanyLink:          "https://www.dice.com/company-profile/techridge",
		FieldJobTitle:             "Java Developer",
		FieldLocation:             "Albany, New York",
		FieldPostedDate:           "Posted 2 days ago",
		FieldEmploymentType:       "Contract Corp-To-Corp",
		FieldPay:                  "USD 65.00 - 70.00 per hour $",
		FieldWorkArrangement:      "Hybrid 3 days",
		FieldTravelRequirements:   "Travel Required 10%",
		FieldRecruiterName:        "Subhash Chandra",
		FieldRecruiterTitle:       "Recruitment Specialist @ Techridge, Inc.",
		FieldRecruiterCompany:     "Techridge, Inc.",
		FieldRecruiterProfileLink: "https://www.dice.com/recruiter/123",
	}
	for key, want := range expectStrings {
		assert.Equal(t, want, rec.GetString(key), key)
	}

	positions, _ := rec.Get(FieldPositionTypes)
	assert.Equal(t, []string{"Contract - W2"}, positions)
	pay, _ := rec.Get(FieldPayInformation)
	assert.Equal(t, []string{"$65/hr"}, pay)
	other, _ := rec.Get(FieldOtherBadges)
	assert.Equal(t, []string{"Easy Apply"}, other)

	skills, _ := rec.Get(FieldPrimarySkillSet)
	assert.Equal(t, []string{"Java", "Spring Boot"}, skills)

	assert.Equal(t, "Rate $65/hrs\nAngular\nGoogle Cloud Platform\nCafé team", rec.GetString(FieldJobDescription))
}

func TestExtractDetailFieldOrder(t *testing.T) {
	rec := fieldsToRecord(ParseDetail(readFixture(t, "detail.html")))

	// The overview chip replaces the badge-derived work arrangement in place
	assert.Equal(t, []string{
		FieldCompanyName, FieldCompanyLink, FieldJobTitle, FieldLocation, FieldPostedDate,
		FieldPositionTypes, FieldWorkArrangement, FieldPayInformation, FieldOtherBadges,
		FieldEmploymentType, FieldPay, FieldTravelRequirements,
		FieldPrimarySkillSet, FieldJobDescription,
		FieldRecruiterName, FieldRecruiterTitle, FieldRecruiterCompany, FieldRecruiterProfileLink,
	}, rec.Keys())
}

func TestExtractDetailWithoutHeaderCard(t *testing.T) {
	fields := ParseDetail(`<html><body><h1>Some Job</h1></body></html>`)
	require.Len(t, fields, 1)
	assert.Equal(t, FieldError, fields[0].Key)
	assert.Equal(t, ErrNoHeaderCard, fields[0].Value)
}

func TestExtractDetailMinimalHeader(t *testing.T) {
	rec := fieldsToRecord(ParseDetail(`<div data-testid="job-detail-header-card"><h1>Dev</h1></div>`))

	assert.Equal(t, "Dev", rec.GetString(FieldJobTitle))
	assert.Equal(t, models.NotAvailable, rec.GetString(FieldCompanyName))
	assert.Equal(t, models.NotAvailable, rec.GetString(FieldLocation))
	assert.Equal(t, models.NotAvailable, rec.GetString(FieldPostedDate))
	assert.Equal(t, models.NotAvailable, rec.GetString(FieldPositionTypes))
	assert.Equal(t, models.NotAvailable, rec.GetString(FieldJobDescription))
	assert.Equal(t, models.NotAvailable, rec.GetString(FieldRecruiterCompany))

	skills, ok := rec.Get(FieldPrimarySkillSet)
	require.True(t, ok)
	assert.Equal(t, []string{}, skills)
}

func TestBadgeClassification(t *testing.T) {
	assert.True(t, IsPositionType("Corp To Corp"))
	assert.True(t, IsPositionType("W2 Only"))
	assert.True(t, IsWorkArrangement("On-Site"))
	assert.True(t, IsWorkArrangement("Remote"))
	assert.True(t, IsPayInfo("$80 - $90"))
	assert.True(t, IsPayInfo("Depends on experience, hourly"))
	assert.False(t, IsPayInfo("Easy Apply"))
	assert.False(t, IsPositionType("Full Time"))
}

func TestCompanyFromTitle(t *testing.T) {
	assert.Equal(t, "Techridge", companyFromTitle("Recruiter @ Techridge"))
	assert.Equal(t, "B", companyFromTitle("a@x @ B"))
	assert.Equal(t, "Talent Partner", companyFromTitle("Talent Partner"))
	assert.Equal(t, models.NotAvailable, companyFromTitle(models.NotAvailable))
}
