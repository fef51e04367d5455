package models

import "time"

// SpaceStatus is the lifecycle state of a parking space.
type SpaceStatus string

const (
	StatusOpen     SpaceStatus = "Open"
	StatusReserved SpaceStatus = "Reserved"
	StatusOccupied SpaceStatus = "Occupied"
)

// NoOccupant is stored in ParkingSpace.User when nobody owns the space.
// Occupied with NoOccupant means an unattributed (illegal) occupant.
const NoOccupant = "None"

// ParkingSpace is a single parking slot. Field names follow the
// parking_spaces table so change-feed payloads decode directly.
type ParkingSpace struct {
	ID     string      `bson:"id" json:"id"`
	Name   string      `bson:"name" json:"name"`
	Status SpaceStatus `bson:"status" json:"status"`
	// User is the occupant display name or NoOccupant.
	User     string `bson:"user" json:"user"`
	Location string `bson:"location" json:"location"`
	// AllocatedAt is when the reservation or occupation began.
	AllocatedAt *time.Time `bson:"allocated_at,omitempty" json:"allocated_at"`
	// ParkingEndTime is inherited from a guest request when applicable.
	ParkingEndTime *time.Time `bson:"parking_end_time,omitempty" json:"parking_end_time"`
	VerifiedByUser bool       `bson:"verified_by_user" json:"verified_by_user"`
	VerifiedAt     *time.Time `bson:"verified_at,omitempty" json:"verified_at"`
}

// AwaitingVerification reports whether the space is occupied by displayName
// and the occupation has not been confirmed yet.
func (s *ParkingSpace) AwaitingVerification(displayName string) bool {
	return s != nil &&
		s.Status == StatusOccupied &&
		s.User == displayName &&
		!s.VerifiedByUser
}

// Reservation carries the fields written when a space moves Open -> Reserved.
type Reservation struct {
	User           string
	AllocatedAt    time.Time
	ParkingEndTime *time.Time
}

// Change operations delivered by the change feed.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// SpaceChange is one row change on parking_spaces.
type SpaceChange struct {
	Op  string        `json:"op"`
	Old *ParkingSpace `json:"old"`
	New *ParkingSpace `json:"new"`
}
