package models

import "strings"

// Role is the identity's role as supplied by the auth provider.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleStaff Role = "Staff"
	RoleUser  Role = "User"
	RoleGuest Role = "Guest"
)

// ParseRole normalises a role claim. Unknown values map to RoleUser.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "staff":
		return RoleStaff
	case "guest":
		return RoleGuest
	default:
		return RoleUser
	}
}

// Identity is the authenticated actor driving a chat session.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

func (i Identity) IsGuest() bool {
	return i.Role == RoleGuest
}

// UserInfo is the subset of user_info the assistant reads.
type UserInfo struct {
	UserID   string `bson:"user_id" json:"user_id"`
	FCMToken string `bson:"fcm_token" json:"fcm_token"`
}
