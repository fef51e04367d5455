package repository

import (
	"context"
	"database/sql"

	feedRepo "campuspark/database/repository/feed"
	guestRepo "campuspark/database/repository/guest"
	parkingRepo "campuspark/database/repository/parking"
	userInfoRepo "campuspark/database/repository/userinfo"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Re-export the repository interfaces.
type ParkingSpaceRepository = parkingRepo.ParkingSpaceRepository

type GuestRequestRepository = guestRepo.GuestRequestRepository

type UserInfoRepository = userInfoRepo.UserInfoRepository

type ChangeFeed = feedRepo.ChangeFeed

// Store bundles the collaborators of one storage backend.
type Store struct {
	Spaces   ParkingSpaceRepository
	Guests   GuestRequestRepository
	UserInfo UserInfoRepository
	Feed     ChangeFeed

	// run drives background work the backend needs (the shared postgres listener).
	run func(ctx context.Context)
}

// Run blocks running the backend's background work until ctx is done.
func (s *Store) Run(ctx context.Context) {
	if s.run == nil {
		<-ctx.Done()
		return
	}
	s.run(ctx)
}

// NewMongoStore wires the MongoDB repositories and change-stream feed.
func NewMongoStore(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		Spaces:   parkingRepo.NewMongoParkingRepo(db),
		Guests:   guestRepo.NewMongoGuestRepo(db),
		UserInfo: userInfoRepo.NewMongoUserInfoRepo(db),
		Feed:     feedRepo.NewMongoFeed(db, logger),
	}
}

// NewPostgresStore wires the PostgreSQL repositories and LISTEN/NOTIFY feed.
func NewPostgresStore(db *sql.DB, dsn string, logger *zap.Logger) (*Store, error) {
	feed, err := feedRepo.NewPgFeed(dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Store{
		Spaces:   parkingRepo.NewPgParkingRepo(db),
		Guests:   guestRepo.NewPgGuestRepo(db),
		UserInfo: userInfoRepo.NewPgUserInfoRepo(db),
		Feed:     feed,
		run:      feed.Run,
	}, nil
}
