package parkingRepo

import (
	"context"
	"errors"
	"time"

	"campuspark/models"
)

// ErrSpaceNotFound is returned when no space matches the lookup.
var ErrSpaceNotFound = errors.New("parking space not found")

// ErrOccupantChanged is returned by the verification writes when the space is
// no longer Occupied by the expected occupant.
var ErrOccupantChanged = errors.New("parking space occupant changed")

// ParkingSpaceRepository defines the space reads and transitions the
// assistant performs. No method holds a lock across calls.
type ParkingSpaceRepository interface {
	// GetByName retrieves a space by its display name (e.g. "P1").
	GetByName(ctx context.Context, name string) (*models.ParkingSpace, error)
	// GetByID retrieves a space by its unique ID.
	GetByID(ctx context.Context, id string) (*models.ParkingSpace, error)
	// ReserveIfOpen moves the space Open -> Reserved in one conditional
	// update and reports whether the row was still Open.
	ReserveIfOpen(ctx context.Context, name string, r models.Reservation) (bool, error)
	// ConfirmOccupant marks the occupation as verified by its owner. It only
	// applies while the space is Occupied by occupant.
	ConfirmOccupant(ctx context.Context, id, occupant string, at time.Time) error
	// DisownOccupant records that the occupant is not the owner, under the
	// same condition as ConfirmOccupant.
	DisownOccupant(ctx context.Context, id, occupant string) error
}
