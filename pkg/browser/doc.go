// Package browser loads job board pages.
//
// Two engines implement PageFetcher. Session and Page drive a real browser
// through playwright-go; the board renders its results client-side so this
// is the default. HTTPFetcher uses colly for servers that send finished HTML,
// which is what the tests use.
//
// Failures come back as *errors.Error. Timeouts are ErrorTypeTimeout and
// other load failures ErrorTypeNavigation, except responses whose status a
// retry will not fix (404, 403 and the like), which are ErrorTypeHTTP. A
// missing ready selector in a fetched document is ErrorTypeExtraction.
package browser
