package main

import (
	"context"
	"flag"
	"log"
	"time"

	"campuspark/config"
	"campuspark/database"
	parkingRepo "campuspark/database/repository/parking"
	"campuspark/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Simulates a car pulling into a space so the occupancy watcher fires for
// the space's owner. With -list it prints every space instead.
func main() {
	space := flag.String("space", "", "space name to occupy, e.g. P3")
	user := flag.String("user", "", "display name recorded as the occupant")
	unverified := flag.Bool("unverified", true, "leave verified_by_user false so a prompt is raised")
	list := flag.Bool("list", false, "print every space and exit")
	flag.Parse()

	config.LoadConfig()
	db := database.MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *list {
		if err := listSpaces(ctx, db); err != nil {
			log.Fatalf("Error listing spaces: %v", err)
		}
		return
	}
	if *space == "" || *user == "" {
		log.Fatal("both -space and -user are required")
	}

	set := bson.M{
		"status":           models.StatusOccupied,
		"user":             *user,
		"verified_by_user": !*unverified,
	}
	if !*unverified {
		set["verified_at"] = time.Now()
	}
	res, err := db.Collection(parkingRepo.CollectionName).UpdateOne(ctx, bson.M{"name": *space}, bson.M{"$set": set})
	if err != nil {
		log.Fatalf("Failed to occupy %s: %v", *space, err)
	}
	if res.MatchedCount == 0 {
		log.Fatalf("No parking space named %s", *space)
	}
	log.Printf("%s is now Occupied by %s (verified=%t)", *space, *user, !*unverified)
}
