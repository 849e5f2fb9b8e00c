package application

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateUser = errors.New("user with such email already exists")
)

type IdentityService interface {
	Register(ctx context.Context, user User) error
}

func NewIdentityService(repo Repository) IdentityService {
	return &service{
		repo: repo,
	}
}

type service struct {
	repo Repository
	// mu serializes registrations so that concurrent calls cannot
	// overwrite each other's appended record.
	mu sync.Mutex
}

func (s *service) Register(ctx context.Context, user User) error {
	if err := validateStruct(user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.LoadAll(ctx)
	if err != nil && !errors.Is(err, ErrStoreNotFound) {
		return errors.WithMessage(err, "failed to load users")
	}

	for _, existing := range users {
		if existing.Email == user.Email {
			return errors.WithStack(ErrDuplicateUser)
		}
	}

	updated := make([]User, 0, len(users)+1)
	updated = append(updated, users...)
	updated = append(updated, user)
	if err := s.repo.SaveAll(ctx, updated); err != nil {
		return errors.WithMessage(err, "failed to save users")
	}

	return nil
}
