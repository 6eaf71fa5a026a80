// Package services implements the Spotify Web API access layer: the
// request gateway (retry, backoff, rate limits, pagination, batching),
// the token manager (regular and extended grants, durable refresh), and
// local identifier/URI validation.
//
// The [Service] interface is what the rest of the application consumes;
// [Client] is its production implementation. All validation failures
// surface before any network call is made.
package services
