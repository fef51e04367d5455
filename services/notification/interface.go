package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	userInfoRepo "campuspark/database/repository/userinfo"
	"campuspark/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MessageSender is the subset of *messaging.Client used here.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService pushes verification prompts to the identity's device.
type NotificationService interface {
	SendVerificationPrompt(ctx context.Context, identityID string, p models.PendingVerification) error
}

// DefaultNotificationService is the FCM implementation.
type DefaultNotificationService struct {
	users   userInfoRepo.UserInfoRepository
	sender  MessageSender
	logger  *zap.Logger
	timeout time.Duration
}

func NewDefaultNotificationService(
	users userInfoRepo.UserInfoRepository,
	sender MessageSender,
	logger *zap.Logger,
	timeout time.Duration,
) (*DefaultNotificationService, error) {
	if users == nil || sender == nil {
		return nil, fmt.Errorf("notification service initialization error: user info repository or sender is nil")
	}
	return &DefaultNotificationService{
		users:   users,
		sender:  sender,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// SendVerificationPrompt looks up the identity's FCM token and sends the
// Yes/No question as a high-priority push.
func (s *DefaultNotificationService) SendVerificationPrompt(ctx context.Context, identityID string, p models.PendingVerification) error {
	token, err := s.users.GetFCMToken(ctx, identityID)
	if err != nil {
		return fmt.Errorf("SendVerificationPrompt: could not find token for %s: %w", identityID, err)
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "Is this you?",
			Body:  fmt.Sprintf("A car was detected in %s at %s. Tap to confirm.", p.SpaceName, p.Location),
		},
		Data: map[string]string{
			"type":     models.PushVerificationPrompt,
			"space_id": p.SpaceID,
			"space":    p.SpaceName,
			"location": p.Location,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendVerificationPrompt: failed to send FCM message: %w", err)
	}
	return nil
}

// Prompt adapts the service to the occupancy watcher. A missing device
// token is not an error.
func (s *DefaultNotificationService) Prompt(identityID string, p models.PendingVerification) {
	ctx, cancel := context.WithCancel(context.Background())
	if s.timeout > 0 {
		cancel()
		ctx, cancel = context.WithTimeout(context.Background(), s.timeout)
	}
	defer cancel()

	err := s.SendVerificationPrompt(ctx, identityID, p)
	switch {
	case err == nil:
		s.logger.Info("Verification push sent", zap.String("identity", identityID), zap.String("space", p.SpaceName))
	case errors.Is(err, userInfoRepo.ErrTokenNotFound):
		s.logger.Debug("No device token for verification push", zap.String("identity", identityID))
	default:
		s.logger.Warn("Verification push failed", zap.String("identity", identityID), zap.Error(err))
	}
}
