// Package routing holds the portal's static page table.
//
// This package provides:
//   - Route rules (path pattern plus the roles allowed to open it)
//   - The role home map used for post-login and wrong-role redirects
//   - Load-time validation that every role has a reachable home
//
// A table is built once at startup and never mutated.
package routing
