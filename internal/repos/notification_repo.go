package repos

import (
	"github.com/jmoiron/sqlx"

	"clearlot/internal/domain"
)

type NotificationRepo struct{ db *sqlx.DB }

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Create(n domain.Notification) error {
	_, err := r.db.Exec(`
	  INSERT INTO notifications(id,user_id,kind,body,ref_id,read,created_at)
	  VALUES(?,?,?,?,?,0,CURRENT_TIMESTAMP)
	`, n.ID, n.UserID, n.Kind, n.Body, n.RefID)
	return err
}

func (r *NotificationRepo) ListByUser(userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Notification
	err := r.db.Select(&out, `
	  SELECT id,user_id,kind,body,ref_id,read,created_at
	  FROM notifications WHERE user_id=?
	  ORDER BY datetime(created_at) DESC LIMIT ?
	`, userID, limit)
	return out, err
}

func (r *NotificationRepo) MarkRead(id, userID string) error {
	_, err := r.db.Exec(`UPDATE notifications SET read=1 WHERE id=? AND user_id=?`, id, userID)
	return err
}
