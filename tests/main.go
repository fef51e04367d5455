package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"campuspark/config"
	"campuspark/database"
	parkingRepo "campuspark/database/repository/parking"
	"campuspark/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Seeds the Mongo backend with a campus worth of parking spaces, a few guest
// requests and device tokens.
func main() {
	config.LoadConfig()
	db := database.MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	spaceColl := db.Collection(parkingRepo.CollectionName)
	guestColl := db.Collection("guest_parking_request")
	userInfoColl := db.Collection("user_info")

	for _, coll := range []string{parkingRepo.CollectionName, "guest_parking_request", "user_info"} {
		if _, err := db.Collection(coll).DeleteMany(ctx, bson.M{}); err != nil {
			log.Fatalf("Failed to clear %s collection: %v", coll, err)
		}
	}

	lots := []string{"Lot A", "Lot B", "Lot C"}
	occupants := []string{"Alice", "Bob", "Carol"}
	spacesPerLot := 8
	now := time.Now()

	var spaces []interface{}
	counter := 1
	for _, lot := range lots {
		for i := 1; i <= spacesPerLot; i++ {
			space := models.ParkingSpace{
				ID:       uuid.NewString(),
				Name:     fmt.Sprintf("P%d", counter),
				Status:   models.StatusOpen,
				User:     models.NoOccupant,
				Location: fmt.Sprintf("%s, row %d", lot, (i-1)/4+1),
			}

			// Roughly a quarter of the spaces start taken.
			switch rand.Intn(8) {
			case 0:
				allocated := now.Add(-time.Duration(rand.Intn(120)) * time.Minute)
				space.Status = models.StatusReserved
				space.User = occupants[rand.Intn(len(occupants))]
				space.AllocatedAt = &allocated
			case 1:
				allocated := now.Add(-time.Duration(rand.Intn(240)) * time.Minute)
				space.Status = models.StatusOccupied
				space.User = occupants[rand.Intn(len(occupants))]
				space.AllocatedAt = &allocated
				space.VerifiedByUser = true
				space.VerifiedAt = &allocated
			}

			spaces = append(spaces, space)
			counter++
		}
	}
	if _, err := spaceColl.InsertMany(ctx, spaces); err != nil {
		log.Fatalf("Failed to insert parking spaces: %v", err)
	}
	log.Printf("Inserted %d parking spaces", len(spaces))

	// One guest inside an approved window, one outside, one still waiting.
	guests := []interface{}{
		models.GuestParkingRequest{
			ID: uuid.NewString(), UserID: "guest-inside", Status: models.GuestRequestApproved,
			ParkingStartTime: now.Add(-time.Hour), ParkingEndTime: now.Add(3 * time.Hour), CreatedAt: now.Add(-24 * time.Hour),
		},
		models.GuestParkingRequest{
			ID: uuid.NewString(), UserID: "guest-outside", Status: models.GuestRequestApproved,
			ParkingStartTime: now.Add(24 * time.Hour), ParkingEndTime: now.Add(26 * time.Hour), CreatedAt: now.Add(-2 * time.Hour),
		},
		models.GuestParkingRequest{
			ID: uuid.NewString(), UserID: "guest-pending", Status: models.GuestRequestOpen,
			ParkingStartTime: now, ParkingEndTime: now.Add(2 * time.Hour), CreatedAt: now,
		},
	}
	if _, err := guestColl.InsertMany(ctx, guests); err != nil {
		log.Fatalf("Failed to insert guest requests: %v", err)
	}

	var tokens []interface{}
	for _, name := range occupants {
		tokens = append(tokens, models.UserInfo{UserID: "u-" + name, FCMToken: "dev-token-" + name})
	}
	if _, err := userInfoColl.InsertMany(ctx, tokens); err != nil {
		log.Fatalf("Failed to insert user info: %v", err)
	}

	log.Println("Seed data inserted successfully.")
}
