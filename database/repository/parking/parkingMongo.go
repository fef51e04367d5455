// File: database/repository/parking/parkingMongo.go
package parkingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campuspark/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is shared with the change feed.
const CollectionName = "parking_spaces"

// MongoParkingRepo implements ParkingSpaceRepository using MongoDB.
type MongoParkingRepo struct {
	coll *mongo.Collection
}

// NewMongoParkingRepo creates a new instance of ParkingSpaceRepository using MongoDB.
func NewMongoParkingRepo(db *mongo.Database) ParkingSpaceRepository {
	repo := &MongoParkingRepo{coll: db.Collection(CollectionName)}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoParkingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "status", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoParkingRepo) findOne(ctx context.Context, filter bson.M) (*models.ParkingSpace, error) {
	var space models.ParkingSpace
	if err := r.coll.FindOne(ctx, filter).Decode(&space); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	return &space, nil
}

// GetByName retrieves a space by name.
func (r *MongoParkingRepo) GetByName(ctx context.Context, name string) (*models.ParkingSpace, error) {
	space, err := r.findOne(ctx, bson.M{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parking space %s: %w", name, err)
	}
	return space, nil
}

// GetByID retrieves a space by id.
func (r *MongoParkingRepo) GetByID(ctx context.Context, id string) (*models.ParkingSpace, error) {
	space, err := r.findOne(ctx, bson.M{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parking space with id %s: %w", id, err)
	}
	return space, nil
}

// ReserveIfOpen only matches documents that are still Open.
func (r *MongoParkingRepo) ReserveIfOpen(ctx context.Context, name string, res models.Reservation) (bool, error) {
	set := bson.M{
		"status":           models.StatusReserved,
		"user":             res.User,
		"allocated_at":     res.AllocatedAt,
		"verified_by_user": false,
		"verified_at":      nil,
		"parking_end_time": nil,
	}
	if res.ParkingEndTime != nil {
		set["parking_end_time"] = *res.ParkingEndTime
	}

	filter := bson.M{"name": name, "status": models.StatusOpen}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to reserve parking space %s: %w", name, err)
	}
	return result.MatchedCount == 1, nil
}

// ConfirmOccupant sets the verification fields on the space.
func (r *MongoParkingRepo) ConfirmOccupant(ctx context.Context, id, occupant string, at time.Time) error {
	return r.updateOccupied(ctx, id, occupant, bson.M{
		"verified_by_user": true,
		"verified_at":      at,
	})
}

// DisownOccupant leaves the space Occupied with no attributable owner.
func (r *MongoParkingRepo) DisownOccupant(ctx context.Context, id, occupant string) error {
	return r.updateOccupied(ctx, id, occupant, bson.M{
		"user":             models.NoOccupant,
		"verified_by_user": false,
		"verified_at":      nil,
		"allocated_at":     nil,
	})
}

// updateOccupied applies updateDoc only while occupant holds the space.
func (r *MongoParkingRepo) updateOccupied(ctx context.Context, id, occupant string, updateDoc bson.M) error {
	filter := bson.M{"id": id, "user": occupant, "status": models.StatusOccupied}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": updateDoc})
	if err != nil {
		return fmt.Errorf("failed to update parking space with id %s: %w", id, err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to check parking space with id %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("parking space with id %s: %w", id, ErrSpaceNotFound)
	}
	return fmt.Errorf("parking space with id %s: %w", id, ErrOccupantChanged)
}
