// Package crawl fetches web content for ingestion.
//
// Validator normalizes and screens URLs before any network traffic.
// Fetcher performs the HTTP requests, throttled per host through a
// token-bucket limiter and retried with exponential backoff on
// transient failures.
package crawl
