// Package utils provides small helpers shared across the service: request
// ID generation, the linear backoff used by the enrichment clients,
// lenient duration parsing and nullable string helpers.
package utils

import "github.com/google/uuid"

// GenerateRequestID returns a random identifier used to correlate all log
// entries of one enrichment call.
func GenerateRequestID() string {
	return "req-" + uuid.NewString()
}
