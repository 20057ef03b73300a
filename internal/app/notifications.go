package app

import (
	"cmp"
	"context"
	"slices"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// notify fans event out to the project's configured recipients, skipping the
// actor. Nothing is sent while notifications are disabled. Storage failures
// are logged and do not fail the triggering operation.
func (s *Service) notify(ctx context.Context, project domain.Project, event domain.NotificationEvent, issue domain.Issue, actorID string) {
	enabled, err := s.NotificationsEnabled(ctx)
	if err != nil {
		s.logger.Error("read notification setting", "err", err)
		return
	}
	if !enabled {
		return
	}
	notes := domain.BuildNotifications(project.EffectiveNotificationScheme(), event, issue, actorID, s.idGen, s.now())
	created := 0
	for _, n := range notes {
		if err := s.repo.CreateNotification(ctx, n); err != nil {
			s.logger.Error("create notification", "event", event, "issue", issue.Key, "recipient", n.RecipientID, "err", err)
			continue
		}
		created++
	}
	if created > 0 {
		s.logger.Debug("notifications dispatched", "event", event, "issue", issue.Key, "count", created)
	}
}

// NotificationsEnabled reports the notificationsEnabled setting. Unset means enabled.
func (s *Service) NotificationsEnabled(ctx context.Context) (bool, error) {
	value, ok, err := s.repo.GetSetting(ctx, SettingNotificationsEnabled)
	if err != nil {
		return false, err
	}
	return settingBool(value, ok, true), nil
}

// SetNotificationsEnabled updates the notificationsEnabled setting.
func (s *Service) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return s.repo.SetSetting(ctx, SettingNotificationsEnabled, boolSetting(enabled))
}

// ListNotifications lists notifications for recipientID, newest first.
func (s *Service) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool) ([]domain.Notification, error) {
	notes, err := s.repo.ListNotifications(ctx, NotificationFilter{RecipientID: recipientID, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(notes, func(a, b domain.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return notes, nil
}

// UnreadCount counts unread notifications for recipientID.
func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	notes, err := s.repo.ListNotifications(ctx, NotificationFilter{RecipientID: recipientID, UnreadOnly: true})
	if err != nil {
		return 0, err
	}
	return len(notes), nil
}

// MarkNotificationRead sets the read flag of one notification.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID string, read bool) (domain.Notification, error) {
	n, err := s.repo.GetNotification(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	if n.Read == read {
		return n, nil
	}
	n.Read = read
	if err := s.repo.UpdateNotification(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// MarkAllNotificationsRead marks every unread notification of recipientID as
// read and reports how many changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error) {
	notes, err := s.repo.ListNotifications(ctx, NotificationFilter{RecipientID: recipientID, UnreadOnly: true})
	if err != nil {
		return 0, err
	}
	for idx, n := range notes {
		n.Read = true
		if err := s.repo.UpdateNotification(ctx, n); err != nil {
			return idx, err
		}
	}
	return len(notes), nil
}

// DeleteNotification removes one notification.
func (s *Service) DeleteNotification(ctx context.Context, notificationID string) error {
	return s.repo.DeleteNotification(ctx, notificationID)
}
