package witness

import "strings"

// nonRetryableMarkers names protocol-permanent failure substrings. An error
// is retryable unless its message contains one of these, case-insensitive.
var nonRetryableMarkers = []string{
	"bad amount",
	"malformed",
	"invalid field",
	"destination-tag-required",
	"redundancy violation",
	"not connected",
}

// IsRetryable classifies err: only protocol-permanent failures are
// non-retryable, everything else (timeouts, connection resets, rate
// limits) is retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}
