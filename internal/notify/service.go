package notify

import (
	"context"

	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender delivers a payload to one live connection. The transport (socket
// server, push gateway) is an external collaborator.
type Sender interface {
	Send(connID string, event string, payload interface{}) error
}

// Service persists notifications through the tenant-scoped store and pushes
// them to connected sessions best-effort.
type Service struct {
	notifications *store.Store[model.Notification, *model.Notification]
	hub           *Hub
	sender        Sender
	logger        *zap.Logger
}

// NewService builds a notification service. sender may be nil, in which case
// notifications are persisted only.
func NewService(db *gorm.DB, hub *Hub, sender Sender, logger *zap.Logger) *Service {
	return &Service{
		notifications: store.New[model.Notification](db),
		hub:           hub,
		sender:        sender,
		logger:        logger.With(zap.String("component", "notify")),
	}
}

// Notify persists one notification per recipient under instituteID and
// pushes it to each recipient's live sessions. Push failures are logged, not
// returned; persistence failures abort the fan-out.
func (s *Service) Notify(ctx context.Context, instituteID string, userIDs []string, kind, title, body string) error {
	for _, userID := range userIDs {
		n := &model.Notification{
			UserID: userID,
			Kind:   kind,
			Title:  title,
			Body:   body,
		}
		if err := s.notifications.Create(ctx, instituteID, n); err != nil {
			return err
		}
		s.push(userID, n)
	}
	return nil
}

func (s *Service) push(userID string, n *model.Notification) {
	if s.sender == nil {
		return
	}
	for _, connID := range s.hub.ConnectionsFor(userID) {
		if err := s.sender.Send(connID, "notification", n); err != nil {
			s.logger.Warn("Notification push failed",
				zap.String("user_id", userID),
				zap.String("conn_id", connID),
				zap.Error(err))
		}
	}
}
