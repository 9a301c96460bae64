// Package enricher fetches detail pages for one listing page over a bounded
// set of workers and hands the records back in listing order.
package enricher
