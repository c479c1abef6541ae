package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and service errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrCategoryUnavailable = fmt.Errorf("category has no browsable playlists")
	ErrTrackNotFound       = fmt.Errorf("track not found")
	ErrRunNotFound         = fmt.Errorf("crawl run not found")

	// Clustering errors
	ErrEmptyTable       = fmt.Errorf("feature table is empty")
	ErrNoNumericColumns = fmt.Errorf("feature table has no numeric columns")
	ErrNotFitted        = fmt.Errorf("cluster model not fitted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
