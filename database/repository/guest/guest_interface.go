package guestRepo

import (
	"context"
	"errors"

	"campuspark/models"
)

// ErrNoApprovedRequest is returned when the guest has no Approved request.
var ErrNoApprovedRequest = errors.New("no approved guest parking request")

// GuestRequestRepository is a read-only view of guest_parking_request.
type GuestRequestRepository interface {
	// GetLatestApproved returns the most recently created Approved request.
	GetLatestApproved(ctx context.Context, userID string) (*models.GuestParkingRequest, error)
}
