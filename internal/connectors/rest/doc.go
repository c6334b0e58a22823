// Package rest provides the authenticated JSON client shared by the
// provider connectors.
//
// Requests carry a bearer token through golang.org/x/oauth2, are throttled
// by a token bucket plus the provider's rate limit headers, and failed
// responses are converted into *APIError or *RateLimitError values that
// wrap the matching domain sentinel.
package rest
