package application

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*User, error)
}

func NewAuthService(repo Repository) AuthService {
	return &authService{
		repo: repo,
	}
}

type authService struct {
	repo Repository
}

type credentials struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// Login returns the first user whose email and password both match exactly.
// An absent store is reported as ErrInvalidCredentials, unlike Register
// which treats it as empty.
func (s authService) Login(ctx context.Context, email, password string) (*User, error) {
	if err := validateStruct(credentials{Email: email, Password: password}); err != nil {
		return nil, err
	}

	users, err := s.repo.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, errors.WithMessage(ErrInvalidCredentials, err.Error())
		}
		return nil, errors.WithMessage(err, "failed to load users")
	}

	for i := range users {
		if users[i].Email == email && users[i].Password == password {
			user := users[i]
			return &user, nil
		}
	}
	return nil, errors.WithStack(ErrInvalidCredentials)
}
