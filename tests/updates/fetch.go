package main

import (
	"context"
	"fmt"
	"log"

	parkingRepo "campuspark/database/repository/parking"
	"campuspark/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func listSpaces(ctx context.Context, db *mongo.Database) error {
	cursor, err := db.Collection(parkingRepo.CollectionName).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return fmt.Errorf("error fetching spaces: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var space models.ParkingSpace
		if err := cursor.Decode(&space); err != nil {
			log.Printf("Error decoding space: %v", err)
			continue
		}
		fmt.Printf("%-4s %-9s %-8s verified=%-5t %s\n", space.Name, space.Status, space.User, space.VerifiedByUser, space.Location)
	}
	return cursor.Err()
}
