package guestRepo

import (
	"context"
	"errors"
	"fmt"

	"campuspark/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoGuestRepo struct {
	coll *mongo.Collection
}

func NewMongoGuestRepo(db *mongo.Database) GuestRequestRepository {
	return &MongoGuestRepo{coll: db.Collection("guest_parking_request")}
}

func (r *MongoGuestRepo) GetLatestApproved(ctx context.Context, userID string) (*models.GuestParkingRequest, error) {
	filter := bson.M{"user_id": userID, "status": models.GuestRequestApproved}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var req models.GuestParkingRequest
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoApprovedRequest
		}
		return nil, fmt.Errorf("failed to fetch guest request for user %s: %w", userID, err)
	}
	return &req, nil
}
