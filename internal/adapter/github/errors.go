package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dfarrell/patchreview/internal/httpretry"
)

// mapHTTPError maps GitHub API status codes to typed httpretry errors so
// the shared retry logic knows which failures are transient.
func mapHTTPError(statusCode int, body []byte) *httpretry.Error {
	message := parseErrorMessage(statusCode, body)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &httpretry.Error{
			Type:       httpretry.ErrTypeAuthentication,
			Message:    message,
			StatusCode: statusCode,
			Service:    serviceName,
		}

	case http.StatusTooManyRequests:
		return &httpretry.Error{
			Type:       httpretry.ErrTypeRateLimit,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Service:    serviceName,
		}

	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return &httpretry.Error{
			Type:       httpretry.ErrTypeInvalidRequest,
			Message:    message,
			StatusCode: statusCode,
			Service:    serviceName,
		}

	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return &httpretry.Error{
			Type:       httpretry.ErrTypeServiceUnavailable,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Service:    serviceName,
		}

	default:
		return &httpretry.Error{
			Type:       httpretry.ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Service:    serviceName,
		}
	}
}

// parseErrorMessage extracts a user-friendly message from GitHub's error
// envelope, falling back to a body preview for non-JSON responses.
func parseErrorMessage(statusCode int, body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		preview := string(body)
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		if preview == "" {
			return fmt.Sprintf("HTTP %d", statusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
	}

	if errResp.Message == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}

	if len(errResp.Errors) > 0 {
		var details []string
		for _, e := range errResp.Errors {
			if e.Message != "" {
				details = append(details, e.Message)
			} else if e.Field != "" {
				details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Code))
			}
		}
		if len(details) > 0 {
			return fmt.Sprintf("%s: %s", errResp.Message, strings.Join(details, "; "))
		}
	}

	return errResp.Message
}
