// File: utils/constants.go
package utils

// Gin context keys set by the identity middleware.
const (
	IdentityKey = "identity"
	UserIDKey   = "userID"
)

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "
