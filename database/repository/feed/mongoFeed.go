package feedRepo

import (
	"context"

	parkingRepo "campuspark/database/repository/parking"
	"campuspark/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoFeed implements ChangeFeed with MongoDB change streams.
type MongoFeed struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewMongoFeed(db *mongo.Database, logger *zap.Logger) *MongoFeed {
	return &MongoFeed{
		coll:   db.Collection(parkingRepo.CollectionName),
		logger: logger,
	}
}

type mongoChangeEvent struct {
	OperationType            string               `bson:"operationType"`
	FullDocument             *models.ParkingSpace `bson:"fullDocument"`
	FullDocumentBeforeChange *models.ParkingSpace `bson:"fullDocumentBeforeChange"`
}

var mongoOps = map[string]string{
	"insert":  models.OpInsert,
	"update":  models.OpUpdate,
	"replace": models.OpUpdate,
}

// Subscribe opens a change stream filtered on the occupant name. Pre-images
// are used when the collection has them enabled.
func (f *MongoFeed) Subscribe(ctx context.Context, filter Filter) (<-chan models.SpaceChange, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}},
			"$or": bson.A{
				bson.M{"fullDocument.user": filter.User},
				bson.M{"fullDocumentBeforeChange.user": filter.User},
			},
		}}},
	}
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	stream, err := f.coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan models.SpaceChange, 16)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var ev mongoChangeEvent
			if err := stream.Decode(&ev); err != nil {
				f.logger.Warn("Failed to decode change event", zap.Error(err))
				continue
			}
			change := models.SpaceChange{
				Op:  mongoOps[ev.OperationType],
				Old: ev.FullDocumentBeforeChange,
				New: ev.FullDocument,
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			f.logger.Error("Change stream terminated", zap.String("user", filter.User), zap.Error(err))
		}
	}()
	return out, nil
}
