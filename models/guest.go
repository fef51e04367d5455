package models

import "time"

// Guest request statuses.
const (
	GuestRequestOpen     = "Open"
	GuestRequestApproved = "Approved"
	GuestRequestRejected = "Rejected"
)

// GuestParkingRequest is a guest's request for a parking window.
type GuestParkingRequest struct {
	ID               string    `bson:"id" json:"id"`
	UserID           string    `bson:"user_id" json:"user_id"`
	Status           string    `bson:"status" json:"status"`
	ParkingStartTime time.Time `bson:"parking_start_time" json:"parking_start_time"`
	ParkingEndTime   time.Time `bson:"parking_end_time" json:"parking_end_time"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}

// Covers reports whether t lies inside the approved window (inclusive).
func (r *GuestParkingRequest) Covers(t time.Time) bool {
	return !t.Before(r.ParkingStartTime) && !t.After(r.ParkingEndTime)
}
