package domain

import (
	"errors"
	"fmt"
	"time"
)

// Ledger errors. Every kind is recoverable by the caller; only ErrTransient is
// safe to retry automatically.
var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrWindowClosed      = errors.New("registration window closed")
	ErrCourseFull        = errors.New("course is full")
	ErrAlreadyRegistered = errors.New("already registered for this course")
	ErrNotRegistered     = errors.New("not registered for this course")
	ErrTransient         = errors.New("temporary failure, retry later")
)

// Catalog errors.
var (
	ErrInvalidCourse           = errors.New("invalid course")
	ErrCourseClosedForEdit     = errors.New("course can no longer be edited")
	ErrCourseStillOpen         = errors.New("course registration window has not passed")
	ErrCapacityBelowRegistered = errors.New("capacity cannot be lower than registered count")
)

// Identity errors.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrForbidden           = errors.New("access forbidden")
	ErrSocialLoginDisabled = errors.New("social login is not configured")
	ErrSocialLoginFailed   = errors.New("social login failed")
)

// WindowState tells a caller which side of the registration window it hit.
type WindowState string

const (
	WindowNotYetOpen    WindowState = "not_yet_open"
	WindowAlreadyClosed WindowState = "already_closed"
)

// WindowClosedError is returned when a registration is attempted outside
// [RegistrationStart, RegistrationEnd]. It matches ErrWindowClosed with errors.Is.
type WindowClosedError struct {
	State WindowState
	Start time.Time
	End   time.Time
}

func (e *WindowClosedError) Error() string {
	switch e.State {
	case WindowNotYetOpen:
		return fmt.Sprintf("registration opens at %s", e.Start.UTC().Format(time.RFC3339))
	default:
		return fmt.Sprintf("registration closed at %s", e.End.UTC().Format(time.RFC3339))
	}
}

func (e *WindowClosedError) Is(target error) bool {
	return target == ErrWindowClosed
}

// Transient wraps a backend failure so that it matches ErrTransient while
// keeping the cause in the message.
func Transient(cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrTransient) {
		return cause
	}
	return fmt.Errorf("%w: %v", ErrTransient, cause)
}

// Stable machine-readable codes for the error kinds above.
const (
	CodeNotFound                = "not_found"
	CodeWindowClosed            = "window_closed"
	CodeCourseFull              = "course_full"
	CodeAlreadyRegistered       = "already_registered"
	CodeNotRegistered           = "not_registered"
	CodeTransient               = "transient"
	CodeInvalidCourse           = "invalid_course"
	CodeCourseClosedForEdit     = "course_closed_for_edit"
	CodeCourseStillOpen         = "course_still_open"
	CodeCapacityBelowRegistered = "capacity_below_registered"
	CodeUserNotFound            = "user_not_found"
	CodeUserExists              = "user_exists"
	CodeInvalidCredentials      = "invalid_credentials"
	CodeForbidden               = "forbidden"
	CodeSocialLoginDisabled     = "social_login_disabled"
	CodeSocialLoginFailed       = "social_login_failed"
	CodeInternal                = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrCourseNotFound, CodeNotFound},
	{ErrWindowClosed, CodeWindowClosed},
	{ErrCourseFull, CodeCourseFull},
	{ErrAlreadyRegistered, CodeAlreadyRegistered},
	{ErrNotRegistered, CodeNotRegistered},
	{ErrTransient, CodeTransient},
	{ErrInvalidCourse, CodeInvalidCourse},
	{ErrCourseClosedForEdit, CodeCourseClosedForEdit},
	{ErrCourseStillOpen, CodeCourseStillOpen},
	{ErrCapacityBelowRegistered, CodeCapacityBelowRegistered},
	{ErrUserNotFound, CodeUserNotFound},
	{ErrUserExists, CodeUserExists},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrForbidden, CodeForbidden},
	{ErrSocialLoginDisabled, CodeSocialLoginDisabled},
	{ErrSocialLoginFailed, CodeSocialLoginFailed},
}

// ErrorCode classifies err into one of the stable codes. Unknown errors are
// CodeInternal.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// invalidCourse annotates ErrInvalidCourse with the offending rule.
func invalidCourse(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidCourse, reason)
}
