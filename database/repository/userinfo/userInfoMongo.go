package userInfoRepo

import (
	"context"
	"errors"
	"fmt"

	"campuspark/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserInfoRepo struct {
	coll *mongo.Collection
}

func NewMongoUserInfoRepo(db *mongo.Database) UserInfoRepository {
	return &MongoUserInfoRepo{coll: db.Collection("user_info")}
}

func (r *MongoUserInfoRepo) GetFCMToken(ctx context.Context, userID string) (string, error) {
	opts := options.FindOne().SetProjection(bson.M{"user_id": 1, "fcm_token": 1})

	var info models.UserInfo
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&info); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to fetch user info for %s: %w", userID, err)
	}
	if info.FCMToken == "" {
		return "", ErrTokenNotFound
	}
	return info.FCMToken, nil
}
