// Package export writes scraped job records to disk.
//
// Records are appended to a JSON-lines file one page at a time, so a crash
// loses at most the page in flight. At the end of a run the accumulated
// records are written as a CSV snapshot whose header is the union of every
// record's keys. An optional SQLite mirror and a run manifest complete the
// output set.
package export
