package repos

import (
	"clearlot/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new account. Registration is single-shot: a unique
// email violation surfaces as-is so the caller can report "already
// exists" without retrying.
func (r *UserRepo) Create(id, email, name, hash, role string) error {
	_, err := r.DB.Exec(`INSERT INTO users(id,email,name,password_hash,role) VALUES(?,?,?,?,?)`,
		id, email, name, hash, role)
	return err
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.role
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

func (r *UserRepo) List(excludeRole string) ([]domain.User, error) {
	var out []domain.User
	err := r.DB.Select(&out, `SELECT id,email,name,password_hash,role FROM users WHERE role != ? ORDER BY email`, excludeRole)
	return out, err
}

// DeleteUserCascade removes a user and their session-scoped data while
// keeping orders for audit (they are cancelled, not deleted). Their
// listed lots are deactivated rather than removed so order history keeps
// resolving.
func (r *UserRepo) DeleteUserCascade(userID string) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var sessionIDs []string
	if err := tx.Select(&sessionIDs, `SELECT id FROM sessions WHERE user_id=?`, userID); err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE orders SET status='CANCELLED'
		WHERE (buyer_id=? OR seller_id=?) AND status IN ('AWAITING_WIRE','ORDERED')`, userID, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE products SET active=0, updated_at=CURRENT_TIMESTAMP WHERE seller_id=?`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE offers SET status='REJECTED', updated_at=CURRENT_TIMESTAMP
		WHERE (buyer_id=? OR seller_id=?) AND status IN ('PENDING','COUNTERED')`, userID, userID); err != nil {
		return err
	}

	if len(sessionIDs) > 0 {
		for _, q := range []string{
			`DELETE FROM carts WHERE session_id IN (?)`,
			`DELETE FROM watchlists WHERE session_id IN (?)`,
			`DELETE FROM sessions WHERE id IN (?)`,
		} {
			query, args, err := sqlx.In(q, sessionIDs)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(query, args...); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM notifications WHERE user_id=?`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM users WHERE id=?`, userID); err != nil {
		return err
	}

	return tx.Commit()
}
