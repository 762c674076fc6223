// Package apiclient is the gateway's outbound client for the CampusIQ API.
//
// This package implements:
//   - Bounded retry with linear backoff (transport failures and 5xx only)
//   - Per-attempt bearer credentials read from an oauth2.TokenSource
//   - Composite fetches that decompose a pre-joined payload by key
//   - Fail-fast fan-out of independent calls
//
// 4xx responses are terminal and never retried.
package apiclient
