package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnknownResource    = fmt.Errorf("unknown resource")

	// API errors
	ErrNetwork        = fmt.Errorf("network error")
	ErrServer         = fmt.Errorf("server error")
	ErrStaleResponse  = fmt.Errorf("stale response")
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Live channel errors
	ErrNotConnected     = fmt.Errorf("not connected")
	ErrConnectionClosed = fmt.Errorf("connection closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidQuery    = fmt.Errorf("invalid query")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
