// Package auth owns the per-browser session context of the portal.
//
// A Session resolves the persisted credential against the CampusIQ API
// exactly once, then publishes immutable AuthState snapshots to its
// observers. Consumers that need a settled identity call Await; the
// route guard never inspects a role while a session is resolving.
//
// Sessions double as oauth2.TokenSource values so outbound API calls read
// the current credential on every attempt.
package auth
