package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrNoMigrations  = fmt.Errorf("no migrations to roll back")

	// Authentication errors
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrDuplicateUsername  = fmt.Errorf("username already exists")
	ErrDuplicateEmail     = fmt.Errorf("email already exists")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Download workflow errors
	ErrExtractionFailed = fmt.Errorf("extraction failed")
	ErrOutputNotFound   = fmt.Errorf("downloaded file not found in scratch directory")
	ErrAmbiguousOutput  = fmt.Errorf("more than one candidate output file in scratch directory")
	ErrUnexpectedFormat = fmt.Errorf("downloaded file is not in the requested format")

	// Ledger and retrieval errors
	ErrNotFound          = fmt.Errorf("not found")
	ErrInvalidTransition = fmt.Errorf("invalid download status transition")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
