// Package middleware provides HTTP middleware for the membrane API.
//
//   - CORS: cross-origin access for browser dashboards, no credentials
//   - RateLimit: per-client token buckets, idle buckets swept
//   - GlobalRateLimit: one bucket shared by every client
//
// Rejected requests get 429 with a Retry-After header.
package middleware
