// Package repository implements MySQL persistence for bookings, warranty
// claims, notifications and the read-only user/service lookups.  Sentinel
// errors defined here let handlers translate failures into HTTP responses
// without inspecting driver errors.
package repository

import "errors"

// ErrBookingNotFound is returned when a booking id does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrClaimNotFound is returned when a warranty claim id does not exist.
var ErrClaimNotFound = errors.New("warranty claim not found")

// ErrNotificationNotFound is returned when a notification id does not
// exist or does not belong to the requesting user.
var ErrNotificationNotFound = errors.New("notification not found")

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrServiceNotFound is returned when a referenced catalog service does
// not exist.
var ErrServiceNotFound = errors.New("service not found")

// ErrConflict is returned when an optimistic-version write discovers the
// row changed since it was read.  Handlers translate this into HTTP 409 so
// the caller can reload and retry.
var ErrConflict = errors.New("conflict")
