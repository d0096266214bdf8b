package services

import (
	"github.com/google/uuid"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
)

// NotifyService writes in-app notifications. Delivery to external push
// channels is out of scope; consumers poll GET /notifications.
type NotifyService struct {
	Repo *repos.NotificationRepo
}

func NewNotifyService(repo *repos.NotificationRepo) *NotifyService {
	return &NotifyService{Repo: repo}
}

func (s *NotifyService) push(userID, kind, body, refID string) {
	if s == nil || s.Repo == nil || userID == "" {
		return
	}
	// Notification writes are best-effort; they never fail the action
	// that produced them.
	_ = s.Repo.Create(domain.Notification{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   kind,
		Body:   body,
		RefID:  refID,
	})
}

func (s *NotifyService) Offer(userID, kind, body, offerID string) { s.push(userID, kind, body, offerID) }
func (s *NotifyService) Order(userID, kind, body, orderID string) { s.push(userID, kind, body, orderID) }
func (s *NotifyService) Message(userID, body, msgID string)       { s.push(userID, "message.received", body, msgID) }
func (s *NotifyService) Ticket(userID, body, ticketID string)     { s.push(userID, "ticket.replied", body, ticketID) }

func (s *NotifyService) List(userID string) ([]domain.Notification, error) {
	return s.Repo.ListByUser(userID, 50)
}

func (s *NotifyService) MarkRead(id, userID string) error {
	return s.Repo.MarkRead(id, userID)
}
