package userInfoRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gopkg.in/guregu/null.v4"
)

type pgUserInfoRepo struct {
	db *sql.DB
}

func NewPgUserInfoRepo(db *sql.DB) UserInfoRepository {
	return &pgUserInfoRepo{db: db}
}

func (r *pgUserInfoRepo) GetFCMToken(ctx context.Context, userID string) (string, error) {
	var token null.String
	err := r.db.QueryRowContext(ctx, `SELECT fcm_token FROM user_info WHERE user_id = $1`, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("UserInfoRepository.GetFCMToken %s: %w", userID, err)
	}
	if !token.Valid || token.String == "" {
		return "", ErrTokenNotFound
	}
	return token.String, nil
}
