package userInfoRepo

import (
	"context"
	"errors"
)

// ErrTokenNotFound is returned when the user has no registered device token.
var ErrTokenNotFound = errors.New("no device token for user")

// UserInfoRepository reads push targets from user_info.
type UserInfoRepository interface {
	GetFCMToken(ctx context.Context, userID string) (string, error)
}
