// Package observability provides structured logging, metrics and tracing
// for the CampusIQ portal gateway.
//
// This package implements:
//   - Logger construction (zap-based, JSON or console)
//   - Prometheus counters for outbound API attempts and outcomes
//   - Prometheus counters for route guard decisions and session resolution
//   - OpenTelemetry spans for API calls, page assembly and identity resolution
//
// Every outbound call and every guarded navigation is instrumented.
package observability
