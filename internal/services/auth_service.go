package services

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users *repos.UserRepo
	Carts *repos.CartRepo
	Cart  *CartService
}

// Register creates an account. Not retried on transient failure so a
// replay cannot surface as a false "already exists".
func (s *AuthService) Register(email, name, password, role string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, err
	}
	u := &domain.User{ID: uuid.NewString(), Email: email, Name: name, Hash: string(hash), Role: role}
	if err := s.Users.Create(u.ID, u.Email, u.Name, u.Hash, u.Role); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	if s.Carts != nil {
		_ = s.Carts.MergeForLogin(u.ID, sid)
	}
	// Role changed from anonymous to the account's role: reconcile the
	// cart's stored price view once.
	if s.Cart != nil {
		_ = s.Cart.RepriceForRole(sid, u.Role)
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	if err := s.Users.UnbindSession(sid); err != nil {
		return err
	}
	// Back to anonymous: anonymous browsers see fee-inclusive prices.
	if s.Cart != nil {
		_ = s.Cart.RepriceForRole(sid, "")
	}
	return nil
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}
