package dice

import (
	"maps"
	"net/url"
	"strconv"
)

// BaseURL is the Dice job search endpoint
const BaseURL = "https://www.dice.com/jobs"

// Query holds search filters keyed by query-string parameter name
type Query map[string]string

// DefaultQuery returns the contract Java search used when nothing else is
// configured.
func DefaultQuery() Query {
	return Query{
		"filters.employmentType": "CONTRACTS|THIRD_PARTY",
		"filters.postedDate":     "THREE",
		"q":                      "Java Developer",
	}
}

// Clone returns an independent copy of q
func (q Query) Clone() Query {
	if q == nil {
		return Query{}
	}
	return maps.Clone(q)
}

// Equal reports whether both queries hold the same filters
func (q Query) Equal(other Query) bool {
	return maps.Equal(q, other)
}

// BuildPageURL returns the listing URL for page. The query is copied before
// "page" is added, so q itself is never modified. Parameters already present
// on base are kept unless q overrides them.
func BuildPageURL(base string, q Query, page int) string {
	values := url.Values{}
	target := base

	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		values = u.Query()
		u.RawQuery = ""
		target = u.String()
	}

	for k, v := range q {
		values.Set(k, v)
	}
	values.Set("page", strconv.Itoa(page))

	return target + "?" + values.Encode()
}
