package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed            = fmt.Errorf("authentication failed")
	ErrNotAuthenticated      = fmt.Errorf("not authenticated")
	ErrInvalidOrExpiredToken = fmt.Errorf("invalid or expired unsubscribe token")
	ErrTimeout               = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrPersistenceFailure = fmt.Errorf("failed to persist preferences")

	// Preference errors
	ErrRequiredFrequencyViolation = fmt.Errorf("required email cannot be unsubscribed")
	ErrUnsupportedFrequency       = fmt.Errorf("frequency not supported by email type")
	ErrInvalidFrequency           = fmt.Errorf("invalid frequency")
	ErrInvalidDomain              = fmt.Errorf("invalid domain")
	ErrUnknownEmailType           = fmt.Errorf("unknown email type")
	ErrInvalidEmailType           = fmt.Errorf("invalid email type")
	ErrNothingPending             = fmt.Errorf("no pending unsubscribe request")
	ErrStaleResult                = fmt.Errorf("result discarded: snapshot was replaced")

	// Storage errors
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrCacheMiss      = fmt.Errorf("cache miss")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
