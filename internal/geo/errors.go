package geo

import "errors"

// Lookup failure kinds. Provider implementations wrap one of these so the
// resolver can log and count the failure by kind.
var (
	ErrEmptyOrLoopback = errors.New("empty or loopback address")
	ErrTransport       = errors.New("geolocation transport failure")
	ErrProviderFailure = errors.New("geolocation provider reported failure")
	ErrEmptyResult     = errors.New("geolocation returned no location fields")
	ErrUnexpected      = errors.New("unexpected geolocation failure")
)

// Outcome labels used in logs and metrics.
const (
	OutcomeResolved    = "resolved"
	OutcomeSkipped     = "skipped"
	OutcomeTransport   = "transport"
	OutcomeProvider    = "provider"
	OutcomeEmptyResult = "empty_result"
	OutcomeUnexpected  = "unexpected"
)

// Outcome classifies a Lookup error. A nil error is OutcomeResolved.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeResolved
	case errors.Is(err, ErrEmptyOrLoopback):
		return OutcomeSkipped
	case errors.Is(err, ErrTransport):
		return OutcomeTransport
	case errors.Is(err, ErrProviderFailure):
		return OutcomeProvider
	case errors.Is(err, ErrEmptyResult):
		return OutcomeEmptyResult
	default:
		return OutcomeUnexpected
	}
}
