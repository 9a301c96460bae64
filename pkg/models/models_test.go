package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobStub(t *testing.T) {
	stub := NewJobStub()
	assert.Equal(t, Unavailable, stub.Title)
	assert.Equal(t, Unavailable, stub.Company)
	assert.Equal(t, Unavailable, stub.Location)
	assert.False(t, stub.HasDetailURL())

	stub.URL = "https://www.dice.com/job-detail/abc"
	assert.True(t, stub.HasDetailURL())

	stub.URL = ""
	assert.False(t, stub.HasDetailURL())
}

func TestRecordKeepsInsertionOrder(t *testing.T) {
	stub := JobStub{Title: "Go Dev", Company: "Acme", Location: "Austin, TX", URL: "https://x/1"}
	rec := stub.Record()
	rec.Merge([]Field{
		{Key: "Job Title", Value: "Senior Go Dev"},
		{Key: "Position Types", Value: []string{"C2C", "W2"}},
		{Key: "title", Value: "Go Developer"},
	})

	assert.Equal(t, []string{"title", "company", "location", "url", "Job Title", "Position Types"}, rec.Keys())
	assert.Equal(t, "Go Developer", rec.GetString("title"))
	assert.Equal(t, "C2C; W2", rec.GetString("Position Types"))
	assert.Equal(t, "", rec.GetString("missing"))
	assert.Equal(t, 6, rec.Len())
}

func TestRecordJSON(t *testing.T) {
	rec := NewRecord()
	rec.Set("z", "last <b>&</b>")
	rec.Set("a", []string{"one"})
	rec.Set("count", 3)
	rec.Set("city", "Zürich")

	data, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last <b>&</b>","a":["one"],"count":3,"city":"Zürich"}`, string(data))

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"z", "a", "count", "city"}, decoded.Keys())
	v, _ := decoded.Get("a")
	assert.Equal(t, []string{"one"}, v)
	v, _ = decoded.Get("count")
	assert.Equal(t, float64(3), v)

	assert.Error(t, json.Unmarshal([]byte(`["not","object"]`), &decoded))
}

func TestUnionKeys(t *testing.T) {
	r1 := NewRecord()
	r1.Set("title", "a")
	r1.Set("url", "u")
	r2 := NewRecord()
	r2.Set("title", "b")
	r2.Set("Pay", "$80/hr")
	r2.Set("url", "v")

	assert.Equal(t, []string{"title", "url", "Pay"}, UnionKeys([]*Record{r1, r2}))
	assert.Empty(t, UnionKeys(nil))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "x; y", FormatValue([]interface{}{"x", "y"}))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "true", FormatValue(true))
}
