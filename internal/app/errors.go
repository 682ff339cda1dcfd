package app

import (
	"errors"
	"fmt"
	"net/http"

	"pitchbay/api/internal/content"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func errNotSignedIn() *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Not signed in")
}

func errInvalidStartupID() *DomainError {
	return domainError(http.StatusUnprocessableEntity, "INVALID_INPUT", "Invalid startup ID")
}

func errStartupNotFound() *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", "Startup not found")
}

func errWriteTokenMissing() *DomainError {
	return domainError(http.StatusServiceUnavailable, "CONFIG_ERROR",
		"Content store write token is missing. Make sure CONTENT_WRITE_TOKEN is set in your environment.")
}

// storeError folds a failure from the content store into the domain
// taxonomy, keeping the underlying message for the caller.
func storeError(prefix string, err error) *DomainError {
	if errors.Is(err, content.ErrNoWriteToken) {
		return errWriteTokenMissing()
	}
	message := err.Error()
	if prefix != "" {
		message = fmt.Sprintf("%s: %s", prefix, message)
	}
	return domainError(http.StatusBadGateway, "STORE_ERROR", message)
}
