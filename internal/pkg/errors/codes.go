package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer = 1000
	ErrInvalidParams  = 1001
	ErrNotFound       = 1002
	ErrBadRequest     = 1007
	ErrServiceUnavail = 1008

	// Upstream errors (2000-2999)
	ErrUpstream            = 2000 // HTTP status is taken from the upstream response
	ErrUpstreamUnreachable = 2001

	// Search errors (3000-3999)
	ErrProviderNotFound = 3000
	ErrProviderConfig   = 3001
	ErrSearchFailed     = 3002

	// Media errors (4000-4999)
	ErrInvalidDataURI = 4000
	ErrCacheWrite     = 4001
	ErrMediaFetch     = 4002 // HTTP status is taken from the media origin
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer: {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:  {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:       {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrBadRequest:     {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail: {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	ErrUpstream:            {ErrUpstream, http.StatusBadGateway, "Upstream Error"},
	ErrUpstreamUnreachable: {ErrUpstreamUnreachable, http.StatusInternalServerError, "Upstream request failed"},

	ErrProviderNotFound: {ErrProviderNotFound, http.StatusBadRequest, "Invalid provider"},
	ErrProviderConfig:   {ErrProviderConfig, http.StatusBadRequest, "Invalid provider configuration"},
	ErrSearchFailed:     {ErrSearchFailed, http.StatusInternalServerError, "Search failed"},

	ErrInvalidDataURI: {ErrInvalidDataURI, http.StatusBadRequest, "Invalid image data"},
	ErrCacheWrite:     {ErrCacheWrite, http.StatusInternalServerError, "Failed to save file"},
	ErrMediaFetch:     {ErrMediaFetch, http.StatusBadGateway, "Failed to fetch media"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
