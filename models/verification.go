package models

import "time"

// PendingVerification is a Yes/No question awaiting the owner's answer.
type PendingVerification struct {
	SpaceID    string    `json:"spaceId"`
	SpaceName  string    `json:"spaceName"`
	Location   string    `json:"location"`
	IdentityID string    `json:"identityId"`
	RaisedAt   time.Time `json:"raisedAt"`
}

// Verification answers.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// VerificationAnswer is the body of POST /api/verification/respond.
type VerificationAnswer struct {
	Answer string `json:"answer" binding:"required,oneof=yes no"`
}
