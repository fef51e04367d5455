package parkingRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campuspark/models"

	"gopkg.in/guregu/null.v4"
)

type pgParkingRepo struct {
	db *sql.DB
}

// NewPgParkingRepo creates a ParkingSpaceRepository backed by PostgreSQL.
func NewPgParkingRepo(db *sql.DB) ParkingSpaceRepository {
	return &pgParkingRepo{db: db}
}

const selectSpace = `SELECT id, name, status, "user", location, allocated_at, parking_end_time, verified_by_user, verified_at
	FROM parking_spaces`

func (r *pgParkingRepo) scanOne(ctx context.Context, where string, arg string) (*models.ParkingSpace, error) {
	var (
		space                            models.ParkingSpace
		allocatedAt, endTime, verifiedAt null.Time
	)
	err := r.db.QueryRowContext(ctx, selectSpace+" WHERE "+where+" = $1", arg).Scan(
		&space.ID, &space.Name, &space.Status, &space.User, &space.Location,
		&allocatedAt, &endTime, &space.VerifiedByUser, &verifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	space.AllocatedAt = allocatedAt.Ptr()
	space.ParkingEndTime = endTime.Ptr()
	space.VerifiedAt = verifiedAt.Ptr()
	return &space, nil
}

func (r *pgParkingRepo) GetByName(ctx context.Context, name string) (*models.ParkingSpace, error) {
	space, err := r.scanOne(ctx, "name", name)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.GetByName %s: %w", name, err)
	}
	return space, nil
}

func (r *pgParkingRepo) GetByID(ctx context.Context, id string) (*models.ParkingSpace, error) {
	space, err := r.scanOne(ctx, "id", id)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.GetByID %s: %w", id, err)
	}
	return space, nil
}

func (r *pgParkingRepo) ReserveIfOpen(ctx context.Context, name string, res models.Reservation) (bool, error) {
	query := `UPDATE parking_spaces
		SET status = $1, "user" = $2, allocated_at = $3,
		    parking_end_time = $4,
		    verified_by_user = FALSE, verified_at = NULL
		WHERE name = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query,
		models.StatusReserved, res.User, res.AllocatedAt,
		null.TimeFromPtr(res.ParkingEndTime), name, models.StatusOpen,
	)
	if err != nil {
		return false, fmt.Errorf("ParkingSpaceRepository.ReserveIfOpen %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ParkingSpaceRepository.ReserveIfOpen %s: %w", name, err)
	}
	return affected == 1, nil
}

func (r *pgParkingRepo) ConfirmOccupant(ctx context.Context, id, occupant string, at time.Time) error {
	query := `UPDATE parking_spaces SET verified_by_user = TRUE, verified_at = $1
		WHERE id = $2 AND "user" = $3 AND status = $4`
	return r.execOccupied(ctx, "ConfirmOccupant", id, query, at, id, occupant, models.StatusOccupied)
}

func (r *pgParkingRepo) DisownOccupant(ctx context.Context, id, occupant string) error {
	query := `UPDATE parking_spaces
		SET "user" = $1, verified_by_user = FALSE, verified_at = NULL, allocated_at = NULL
		WHERE id = $2 AND "user" = $3 AND status = $4`
	return r.execOccupied(ctx, "DisownOccupant", id, query, models.NoOccupant, id, occupant, models.StatusOccupied)
}

// execOccupied runs a conditional update and tells a missing space apart
// from one whose occupant moved on.
func (r *pgParkingRepo) execOccupied(ctx context.Context, op, id, query string, args ...interface{}) error {
	err := r.execByID(ctx, op, id, query, args...)
	if !errors.Is(err, ErrSpaceNotFound) {
		return err
	}
	var exists bool
	if qerr := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM parking_spaces WHERE id = $1)`, id).Scan(&exists); qerr != nil {
		return fmt.Errorf("ParkingSpaceRepository.%s %s: %w", op, id, qerr)
	}
	if exists {
		return fmt.Errorf("ParkingSpaceRepository.%s %s: %w", op, id, ErrOccupantChanged)
	}
	return err
}

func (r *pgParkingRepo) execByID(ctx context.Context, op, id, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.%s %s: %w", op, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.%s %s: %w", op, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("ParkingSpaceRepository.%s %s: %w", op, id, ErrSpaceNotFound)
	}
	return nil
}
