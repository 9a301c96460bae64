package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Unavailable is the sentinel for listing fields that could not be extracted
const Unavailable = "N/A"

// NotAvailable is the sentinel used by detail fields that were not present
const NotAvailable = "Not Available"

// Stub field keys, written first in every record
const (
	KeyTitle    = "title"
	KeyCompany  = "company"
	KeyLocation = "location"
	KeyURL      = "url"
)

// JobStub is the summary of one listing card
type JobStub struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// NewJobStub returns a stub with every field set to Unavailable
func NewJobStub() JobStub {
	return JobStub{
		Title:    Unavailable,
		Company:  Unavailable,
		Location: Unavailable,
		URL:      Unavailable,
	}
}

// HasDetailURL reports whether the stub points to a fetchable detail page
func (s JobStub) HasDetailURL() bool {
	return s.URL != "" && s.URL != Unavailable
}

// Record returns a new record seeded with the stub fields
func (s JobStub) Record() *Record {
	r := NewRecord()
	r.Set(KeyTitle, s.Title)
	r.Set(KeyCompany, s.Company)
	r.Set(KeyLocation, s.Location)
	r.Set(KeyURL, s.URL)
	return r
}

// Field is one key/value pair of an ordered field list
type Field struct {
	Key   string
	Value interface{}
}

// Record is a flat job record whose keys keep insertion order. Setting an
// existing key replaces its value in place.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{values: make(map[string]interface{})}
}

// Set stores value under key
func (r *Record) Set(key string, value interface{}) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key
func (r *Record) Get(key string) (interface{}, bool) {
	v, ok := r.values[key]
	return v, ok
}

// GetString returns the value under key rendered as a string
func (r *Record) GetString(key string) string {
	v, ok := r.values[key]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Keys returns the record's keys in insertion order
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.keys)
}

// Merge sets every field in order
func (r *Record) Merge(fields []Field) {
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
}

// Fields returns the record as an ordered field list
func (r *Record) Fields() []Field {
	out := make([]Field, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, Field{Key: k, Value: r.values[k]})
	}
	return out
}

// MarshalJSON encodes the record as an object in insertion order without
// escaping HTML characters.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeNoEscape(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeNoEscape(&buf, r.values[k]); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeNoEscape(buf *bytes.Buffer, v interface{}) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON decodes an object, keeping key order. String arrays decode
// to []string.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	r.keys = nil
	r.values = make(map[string]interface{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		r.Set(key, decodeValue(raw))
	}
	_, err = dec.Token()
	return err
}

func decodeValue(raw json.RawMessage) interface{} {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && list != nil {
		return list
	}
	var v interface{}
	_ = json.Unmarshal(raw, &v)
	return v
}

// FormatValue renders a field value for flat outputs such as CSV cells
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, "; ")
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(val)
	}
}

// UnionKeys returns every key across records in first-seen order
func UnionKeys(records []*Record) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range records {
		for _, k := range r.keys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
