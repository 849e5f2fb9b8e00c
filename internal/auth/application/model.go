package application

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrValidation    = errors.New("invalid user data")
	ErrStoreNotFound = errors.New("user store does not exist")
)

type Occupation string

const (
	OccupationFarmer   Occupation = "farmer"
	OccupationCustomer Occupation = "customer"
)

// User is a registered account. Password is kept as the client sent it.
type User struct {
	Name       string     `validate:"required"`
	Email      string     `validate:"required"`
	Password   string     `validate:"required"`
	Occupation Occupation `validate:"required"`
	Age        string
	Gender     string
	Phone      string
}

// Repository persists the whole user list at once.
// LoadAll returns an error matching ErrStoreNotFound when nothing was saved yet.
type Repository interface {
	LoadAll(ctx context.Context) ([]User, error)
	SaveAll(ctx context.Context, users []User) error
}
