package storage

import (
	"context"
	"fmt"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/models"
)

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	row := models.Notification{AccountID: n.RecipientID, Message: n.Message, Sentiment: n.Sentiment}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Notification{}, fmt.Errorf("failed to insert notification: %w", err)
	}
	return toNotification(row), nil
}

// ListNotifications returns the newest limit notifications for accountID.
func (s *Store) ListNotifications(ctx context.Context, accountID uint, limit int) ([]domain.Notification, error) {
	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, toNotification(r))
	}
	return out, nil
}

// DeleteNotification removes a notification owned by accountID. Someone
// else's notification reports NotFound.
func (s *Store) DeleteNotification(ctx context.Context, accountID, notificationID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", notificationID, accountID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

func toNotification(r models.Notification) domain.Notification {
	return domain.Notification{
		ID:          r.ID,
		RecipientID: r.AccountID,
		Message:     r.Message,
		Sentiment:   r.Sentiment,
		CreatedAt:   r.CreatedAt,
	}
}
