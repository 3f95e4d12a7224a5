package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNetworkUnavailable = fmt.Errorf("network unavailable")
	ErrBackendRejected    = fmt.Errorf("backend rejected request")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrTokenExpired       = fmt.Errorf("session token expired")

	// Catalog errors
	ErrMalformedResponse = fmt.Errorf("malformed response")
	ErrMovieNotFound     = fmt.Errorf("movie not found")

	// Storage errors
	ErrStorageParse      = fmt.Errorf("failed to parse stored value")
	ErrStorageRead       = fmt.Errorf("failed to read stored value")
	ErrStorageWrite      = fmt.Errorf("failed to persist value")
	ErrKeyNotFound       = fmt.Errorf("key not found")
	ErrUnknownCollection = fmt.Errorf("unknown collection")

	// Service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
