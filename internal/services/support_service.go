package services

import (
	"errors"

	"github.com/google/uuid"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
)

var ErrNotYourTicket = errors.New("ticket does not belong to you")

type SupportService struct {
	Tickets *repos.TicketRepo
	Notify  *NotifyService
}

func NewSupportService(tickets *repos.TicketRepo, notify *NotifyService) *SupportService {
	return &SupportService{Tickets: tickets, Notify: notify}
}

func (s *SupportService) Open(userID, subject, body string) (domain.Ticket, error) {
	t := domain.Ticket{
		ID:      uuid.NewString(),
		UserID:  userID,
		Subject: subject,
		Body:    body,
		Status:  domain.TicketOpen,
	}
	if err := s.Tickets.Create(t); err != nil {
		return domain.Ticket{}, err
	}
	return t, nil
}

// Reply appends to the thread. Admin replies notify the ticket owner.
func (s *SupportService) Reply(ticketID, authorID, authorRole, body string) (domain.TicketReply, error) {
	t, _, err := s.Tickets.Get(ticketID)
	if err != nil {
		return domain.TicketReply{}, err
	}
	if authorRole != domain.RoleAdmin && t.UserID != authorID {
		return domain.TicketReply{}, ErrNotYourTicket
	}
	rep := domain.TicketReply{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := s.Tickets.AddReply(rep); err != nil {
		return domain.TicketReply{}, err
	}
	if authorRole == domain.RoleAdmin {
		s.Notify.Ticket(t.UserID, "Support replied to your ticket", t.ID)
	}
	return rep, nil
}

func (s *SupportService) Close(ticketID, userID, role string) error {
	t, _, err := s.Tickets.Get(ticketID)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin && t.UserID != userID {
		return ErrNotYourTicket
	}
	return s.Tickets.Close(ticketID)
}

func (s *SupportService) Get(ticketID, userID, role string) (domain.Ticket, []domain.TicketReply, error) {
	t, replies, err := s.Tickets.Get(ticketID)
	if err != nil {
		return domain.Ticket{}, nil, err
	}
	if role != domain.RoleAdmin && t.UserID != userID {
		return domain.Ticket{}, nil, ErrNotYourTicket
	}
	return t, replies, nil
}

func (s *SupportService) ListFor(userID, role string) ([]domain.Ticket, error) {
	if role == domain.RoleAdmin {
		return s.Tickets.ListAll()
	}
	return s.Tickets.ListByUser(userID)
}
