package repos

import (
	"github.com/jmoiron/sqlx"

	"clearlot/internal/domain"
)

type MessageRepo struct{ db *sqlx.DB }

func NewMessageRepo(db *sqlx.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Create(m domain.Message) error {
	_, err := r.db.Exec(`
	  INSERT INTO messages(id,sender_id,recipient_id,product_id,order_id,body,read,created_at)
	  VALUES(?,?,?,?,?,?,0,CURRENT_TIMESTAMP)
	`, m.ID, m.SenderID, m.RecipientID, m.ProductID, m.OrderID, m.Body)
	return err
}

// Thread returns the two-way conversation between a user and a
// counterparty, oldest first, and marks the inbound half read.
func (r *MessageRepo) Thread(userID, withID string) ([]domain.Message, error) {
	var out []domain.Message
	err := r.db.Select(&out, `
	  SELECT id,sender_id,recipient_id,product_id,order_id,body,read,created_at
	  FROM messages
	  WHERE (sender_id=? AND recipient_id=?) OR (sender_id=? AND recipient_id=?)
	  ORDER BY datetime(created_at)
	`, userID, withID, withID, userID)
	if err != nil {
		return nil, err
	}
	_, _ = r.db.Exec(`UPDATE messages SET read=1 WHERE sender_id=? AND recipient_id=?`, withID, userID)
	return out, nil
}

type ConversationRow struct {
	PartnerID string `db:"partner_id"`
	Unread    int    `db:"unread"`
	LastAt    string `db:"last_at"`
}

func (r *MessageRepo) Conversations(userID string) ([]ConversationRow, error) {
	var out []ConversationRow
	err := r.db.Select(&out, `
	  SELECT partner_id, SUM(unread) AS unread, MAX(at) AS last_at FROM (
	    SELECT recipient_id AS partner_id, 0 AS unread, created_at AS at FROM messages WHERE sender_id=?
	    UNION ALL
	    SELECT sender_id AS partner_id, CASE WHEN read=0 THEN 1 ELSE 0 END, created_at FROM messages WHERE recipient_id=?
	  )
	  GROUP BY partner_id
	  ORDER BY last_at DESC
	`, userID, userID)
	return out, err
}
