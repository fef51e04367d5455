package guestRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campuspark/models"
)

type pgGuestRepo struct {
	db *sql.DB
}

func NewPgGuestRepo(db *sql.DB) GuestRequestRepository {
	return &pgGuestRepo{db: db}
}

func (r *pgGuestRepo) GetLatestApproved(ctx context.Context, userID string) (*models.GuestParkingRequest, error) {
	query := `SELECT id, user_id, status, parking_start_time, parking_end_time, created_at
		FROM guest_parking_request
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var req models.GuestParkingRequest
	err := r.db.QueryRowContext(ctx, query, userID, models.GuestRequestApproved).Scan(
		&req.ID, &req.UserID, &req.Status, &req.ParkingStartTime, &req.ParkingEndTime, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoApprovedRequest
		}
		return nil, fmt.Errorf("GuestRequestRepository.GetLatestApproved %s: %w", userID, err)
	}
	return &req, nil
}
