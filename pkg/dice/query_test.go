package dice

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPageURL(t *testing.T) {
	got := BuildPageURL(BaseURL, Query{"q": "Java"}, 2)
	assert.Equal(t, "https://www.dice.com/jobs?page=2&q=Java", got)
}

func TestBuildPageURLEncodesReservedCharacters(t *testing.T) {
	q := DefaultQuery()
	raw := BuildPageURL(BaseURL, q, 3)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.dice.com", u.Host)
	assert.Equal(t, "/jobs", u.Path)

	params := u.Query()
	assert.Equal(t, "CONTRACTS|THIRD_PARTY", params.Get("filters.employmentType"))
	assert.Equal(t, "Java Developer", params.Get("q"))
	assert.Equal(t, "3", params.Get("page"))
	assert.Contains(t, raw, "CONTRACTS%7CTHIRD_PARTY")
	assert.Contains(t, raw, "q=Java+Developer")
}

func TestBuildPageURLDoesNotMutateQuery(t *testing.T) {
	q := Query{"q": "Java"}
	BuildPageURL(BaseURL, q, 5)

	_, hasPage := q["page"]
	assert.False(t, hasPage)
	assert.Len(t, q, 1)
}

func TestBuildPageURLOverridesPageInQuery(t *testing.T) {
	raw := BuildPageURL(BaseURL, Query{"page": "99", "q": "Go"}, 4)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, u.Query()["page"])
}

func TestBuildPageURLMergesBaseQuery(t *testing.T) {
	raw := BuildPageURL("http://127.0.0.1:8080/jobs?radius=30&q=old", Query{"q": "new"}, 1)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "/jobs", u.Path)
	assert.Equal(t, "30", u.Query().Get("radius"))
	assert.Equal(t, "new", u.Query().Get("q"))
	assert.Equal(t, "1", u.Query().Get("page"))
}

func TestQueryCloneAndEqual(t *testing.T) {
	q := DefaultQuery()
	c := q.Clone()
	assert.True(t, q.Equal(c))

	c["q"] = "Python"
	assert.False(t, q.Equal(c))
	assert.Equal(t, "Java Developer", q["q"])

	var empty Query
	assert.NotNil(t, empty.Clone())
}
