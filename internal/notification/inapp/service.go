package inapp

import (
	"context"

	"salesops_backend/internal/notification/realtime"
	"salesops_backend/internal/notification/sse"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error
}

type Service struct {
	store  Store
	pusher realtime.Pusher
	log    *logger.Logger
}

func NewService(store Store, pusher realtime.Pusher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, pusher: pusher, log: log}
}

type SendParams struct {
	RecipientID    uuid.UUID
	Message        string
	Type           Type
	RelatedOrderID *uuid.UUID
}

// Send persists the notification and then pushes it to the recipient's
// private channel. A failed push is logged; the stored record stands.
func (s *Service) Send(ctx context.Context, p SendParams) (Notification, error) {
	notif, err := s.store.Create(ctx, CreateParams(p))
	if err != nil {
		return Notification{}, err
	}

	if s.pusher != nil {
		event := sse.Event{Type: sse.EventNotification, Message: notif.Message, Data: notif}
		if pushErr := s.pusher.Push(ctx, notif.RecipientID, event); pushErr != nil {
			s.log.WithContext(ctx).Warn("realtime push failed",
				"recipientId", notif.RecipientID.String(),
				"notificationId", notif.ID.String(),
				"error", pushErr)
		}
	}
	return notif, nil
}

func (s *Service) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.store.List(ctx, recipientID, unreadOnly, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, recipientID)
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	if err := s.store.MarkRead(ctx, recipientID, id); err != nil {
		return err
	}
	s.pushUnreadCount(ctx, recipientID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	s.pushUnreadCount(ctx, recipientID)
	return n, nil
}

func (s *Service) Delete(ctx context.Context, recipientID, id uuid.UUID) error {
	return s.store.Delete(ctx, recipientID, id)
}

func (s *Service) pushUnreadCount(ctx context.Context, recipientID uuid.UUID) {
	if s.pusher == nil {
		return
	}
	count, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return
	}
	_ = s.pusher.Push(ctx, recipientID, sse.Event{Type: sse.EventUnreadCount, Data: map[string]int{"count": count}})
}
