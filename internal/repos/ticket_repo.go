package repos

import (
	"github.com/jmoiron/sqlx"

	"clearlot/internal/domain"
)

type TicketRepo struct{ db *sqlx.DB }

func NewTicketRepo(db *sqlx.DB) *TicketRepo { return &TicketRepo{db: db} }

func (r *TicketRepo) Create(t domain.Ticket) error {
	_, err := r.db.Exec(`
	  INSERT INTO tickets(id,user_id,subject,body,status,created_at)
	  VALUES(?,?,?,?,?,CURRENT_TIMESTAMP)
	`, t.ID, t.UserID, t.Subject, t.Body, t.Status)
	return err
}

func (r *TicketRepo) Get(id string) (domain.Ticket, []domain.TicketReply, error) {
	var t domain.Ticket
	if err := r.db.Get(&t, `SELECT id,user_id,subject,body,status,created_at FROM tickets WHERE id=?`, id); err != nil {
		return domain.Ticket{}, nil, err
	}
	var replies []domain.TicketReply
	if err := r.db.Select(&replies, `
	  SELECT id,ticket_id,author_id,body,created_at
	  FROM ticket_replies WHERE ticket_id=?
	  ORDER BY datetime(created_at)
	`, id); err != nil {
		return domain.Ticket{}, nil, err
	}
	return t, replies, nil
}

func (r *TicketRepo) ListByUser(userID string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.db.Select(&out, `
	  SELECT id,user_id,subject,body,status,created_at
	  FROM tickets WHERE user_id=? ORDER BY datetime(created_at) DESC
	`, userID)
	return out, err
}

func (r *TicketRepo) ListAll() ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.db.Select(&out, `
	  SELECT id,user_id,subject,body,status,created_at
	  FROM tickets ORDER BY status, datetime(created_at) DESC
	`)
	return out, err
}

func (r *TicketRepo) AddReply(rep domain.TicketReply) error {
	_, err := r.db.Exec(`
	  INSERT INTO ticket_replies(id,ticket_id,author_id,body,created_at)
	  VALUES(?,?,?,?,CURRENT_TIMESTAMP)
	`, rep.ID, rep.TicketID, rep.AuthorID, rep.Body)
	return err
}

func (r *TicketRepo) Close(id string) error {
	res, err := r.db.Exec(`UPDATE tickets SET status='CLOSED' WHERE id=? AND status='OPEN'`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}
