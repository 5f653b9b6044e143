// Package enrichers contains the outbound provider clients used to enrich
// complaints after they are stored.
//
// # Components
//
// CredentialCache holds the short-lived IAM bearer token required by the
// classification provider. It exchanges the long-lived OAuth secret for a
// new token when none is cached or the cached one is inside its grace
// window, and reports "no credential" instead of failing.
//
// ClassificationClient asks the few-shot text classifier to pick one label
// of a caller-supplied set. It always returns a member of that set or the
// caller's default label.
//
// GeoLookupClient validates an IPv4 address and resolves it to a country
// and city. It always returns a complete pair: real values, LOCALHOST for
// the loopback address, or UNKNOWN.
//
// # Retry behaviour
//
// Both provider clients share one attempt loop. Attempts are bounded and
// the pause after failed attempt k is BaseDelay*k:
//
//	401, 429, 500, network errors, timeouts -> retry
//	400, 403, 404                           -> give up, default result
//	anything else                           -> give up, default result
//
// A missing credential counts as an attempt without touching the network.
// Only invalid input to GeoLookupClient surfaces as an error.
//
// # Logging
//
// Every call emits logging.Event entries sharing one request ID, with the
// action name and an outcome such as "succeeded", "retryable_error" or
// "retries_exhausted".
package enrichers
