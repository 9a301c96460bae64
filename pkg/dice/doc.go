// Package dice knows the shape of Dice job search: how listing URLs are
// built and how listing and detail pages are turned into job fields.
//
// Extraction is best effort. Missing elements produce sentinel values
// (models.Unavailable for listing cards, models.NotAvailable for detail
// fields) instead of errors.
package dice
