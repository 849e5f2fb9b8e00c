package application

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type memoryRepository struct {
	mu      sync.Mutex
	users   []User
	exists  bool
	loadErr error
	saveErr error
	saves   int
}

func (r *memoryRepository) LoadAll(_ context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if !r.exists {
		return nil, errors.WithStack(ErrStoreNotFound)
	}
	return append([]User(nil), r.users...), nil
}

func (r *memoryRepository) SaveAll(_ context.Context, users []User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.users = append([]User(nil), users...)
	r.exists = true
	r.saves++
	return nil
}

func (r *memoryRepository) snapshot() []User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]User(nil), r.users...)
}
