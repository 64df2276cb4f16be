package models

import (
	"errors"
	"fmt"
)

// Domain specific errors.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrNotConfigured   = errors.New("backend not configured")
)

// Route and rating errors. Each wraps one of the kinds above so callers can
// branch on either the kind or the specific failure.
var (
	ErrMissingCity    = fmt.Errorf("%w: city must be selected", ErrValidation)
	ErrMissingTitle   = fmt.Errorf("%w: title is required", ErrValidation)
	ErrNoStops        = fmt.Errorf("%w: at least one stop is required", ErrValidation)
	ErrInvalidNumber  = fmt.Errorf("%w: not a number", ErrValidation)
	ErrInvalidScore   = fmt.Errorf("%w: score must be between 1 and 5 in steps of 0.5", ErrValidation)
	ErrAlreadyRated   = fmt.Errorf("%w: route already rated by user", ErrConflict)
	ErrUploadTooLarge = fmt.Errorf("%w: file exceeds size limit", ErrValidation)
	ErrUnknownBucket  = fmt.Errorf("%w: unknown storage bucket", ErrValidation)
)

const genericMessage = "Something went wrong. Please try again."

var userMessages = []struct {
	err error
	msg string
}{
	{ErrMissingCity, "Please select a city."},
	{ErrMissingTitle, "Please enter a route title."},
	{ErrNoStops, "Add at least one stop to the route."},
	{ErrInvalidNumber, "Please enter a valid number."},
	{ErrInvalidScore, "Ratings go from 1 to 5 stars."},
	{ErrAlreadyRated, "You have already rated this route."},
	{ErrUploadTooLarge, "The file is too large."},
	{ErrUnknownBucket, "Unknown upload destination."},
	{ErrValidation, "Some fields are invalid."},
	{ErrNotFound, "We couldn't find what you were looking for."},
	{ErrUnauthenticated, "Please sign in to continue."},
	{ErrForbidden, "You are not allowed to do that."},
	{ErrConflict, "That already exists."},
	{ErrBadRequest, "The request could not be understood."},
	{ErrNotConfigured, "This feature is unavailable in demo mode."},
	{ErrPersistence, "Your changes could not be saved. Please try again."},
}

// UserMessage returns the human readable message for err, falling back to a
// generic message for unknown failures.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return genericMessage
}
