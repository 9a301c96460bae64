// Package checkpoint persists scrape progress between runs.
//
// The checkpoint is a small JSON document:
//
//	{"last_completed_page": 3, "query": {"q": "Java Developer"}}
//
// Save replaces the whole file atomically under an advisory lock, so a crash
// mid-write leaves either the previous or the new checkpoint. Load never
// fails: missing, malformed or incomplete files all mean "start fresh".
package checkpoint
