package ai

import (
	"fmt"
	"time"

	"campuspark/models"
)

const windowLayout = "Jan 2, 3:04 PM"

const (
	replyApology         = "Sorry, something went wrong while checking the parking space. Please try again."
	replyFallbackFailure = "Sorry, I'm having trouble answering right now. Please try again in a moment."
	replyWhatElse        = "Okay, I won't reserve it. What else can I help you with?"
	replyNoApproved      = "You don't have an approved guest parking request, so I can't reserve a space for you yet."
)

func replyNotFound(space string) string {
	return fmt.Sprintf("I couldn't find a parking space called %s. Please check the name and try again.", space)
}

func replyUnavailable(space *models.ParkingSpace) string {
	switch space.Status {
	case models.StatusOccupied:
		return fmt.Sprintf("Sorry, %s is already occupied. Please choose another space.", space.Name)
	case models.StatusReserved:
		return fmt.Sprintf("Sorry, %s is already reserved. Please choose another space.", space.Name)
	default:
		return fmt.Sprintf("Sorry, %s is not available right now. Please choose another space.", space.Name)
	}
}

func replyConfirmQuestion(space string) string {
	return fmt.Sprintf("Are you sure you want to park in %s?", space)
}

func replyRepeatQuestion(space string) string {
	return fmt.Sprintf("Please answer yes or no. %s", replyConfirmQuestion(space))
}

func replyNoLongerOpen(space *models.ParkingSpace) string {
	return fmt.Sprintf("Sorry, %s is no longer available (%s). Please choose another space.", space.Name, space.Status)
}

func replyJustTaken(space string) string {
	return fmt.Sprintf("Sorry, %s was just taken by someone else. Please choose another space.", space)
}

func replyOutsideWindow(req *models.GuestParkingRequest) string {
	return fmt.Sprintf("Your approved parking window is from %s to %s. You can reserve a space only during that time.",
		formatWindowTime(req.ParkingStartTime), formatWindowTime(req.ParkingEndTime))
}

func replyAskEntrance(space string) string {
	return fmt.Sprintf("Great! %s is reserved for you. Which entrance will you use: Main Entrance or Side Entrance?", space)
}

// replyRoute is the sentence paired with a RouteReady reply.
func replyRoute(space string, entrance models.Entrance) string {
	return fmt.Sprintf("Perfect! Here's the route from the %s to parking space %s.", entrance, space)
}

func replyTaken(ev models.DomainEvent) string {
	return fmt.Sprintf("Thanks for letting me know. Someone else is in %s (%s) and staff have been alerted. Would you like me to find you a new space?",
		ev.ParkingSpace, ev.Location)
}

func replyVerified(ev models.DomainEvent) string {
	return fmt.Sprintf("Thanks for confirming! Your parking at %s (%s) is now verified.", ev.ParkingSpace, ev.Location)
}

func formatWindowTime(t time.Time) string {
	return t.Local().Format(windowLayout)
}
