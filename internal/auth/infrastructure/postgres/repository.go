package postgres

import (
	"context"

	"github.com/jackc/pgx"
	"github.com/pkg/errors"

	"github.com/krishimitra/authservice/internal/auth/application"
)

const errUniqueConstraint = "23505"

const (
	selectUsers = "SELECT name, email, password, occupation, age, gender, phone FROM users ORDER BY position"
	deleteUsers = "DELETE FROM users"
	insertUser  = "INSERT INTO users (position, name, email, password, occupation, age, gender, phone) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
)

type rawUser struct {
	Name       string `db:"name"`
	Email      string `db:"email"`
	Password   string `db:"password"`
	Occupation string `db:"occupation"`
	Age        string `db:"age"`
	Gender     string `db:"gender"`
	Phone      string `db:"phone"`
}

type repository struct {
	connPool *pgx.ConnPool
}

// New returns a repository backed by the users table. An empty table
// is an empty store, so LoadAll never reports ErrStoreNotFound.
func New(connPool *pgx.ConnPool) application.Repository {
	return &repository{
		connPool: connPool,
	}
}

func (r *repository) LoadAll(ctx context.Context) ([]application.User, error) {
	rows, err := r.connPool.QueryEx(ctx, selectUsers, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	users := make([]application.User, 0)
	for rows.Next() {
		var raw rawUser
		if err := rows.Scan(&raw.Name, &raw.Email, &raw.Password, &raw.Occupation, &raw.Age, &raw.Gender, &raw.Phone); err != nil {
			return nil, errors.WithStack(err)
		}
		users = append(users, application.User{
			Name:       raw.Name,
			Email:      raw.Email,
			Password:   raw.Password,
			Occupation: application.Occupation(raw.Occupation),
			Age:        raw.Age,
			Gender:     raw.Gender,
			Phone:      raw.Phone,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return users, nil
}

// SaveAll rewrites the table inside a single transaction.
func (r *repository) SaveAll(ctx context.Context, users []application.User) error {
	tx, err := r.connPool.BeginEx(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecEx(ctx, deleteUsers, nil); err != nil {
		return r.convertError(err)
	}
	for i, user := range users {
		_, err := tx.ExecEx(ctx, insertUser, nil,
			i, user.Name, user.Email, user.Password, string(user.Occupation), user.Age, user.Gender, user.Phone)
		if err != nil {
			return r.convertError(err)
		}
	}
	return r.convertError(tx.CommitEx(ctx))
}

// convertError never reports ErrDuplicateUser: duplicates are rejected
// before SaveAll, so a unique violation here means the written list clashed
// with a rewrite from another process.
func (r *repository) convertError(err error) error {
	if err != nil {
		pgErr, ok := err.(pgx.PgError)
		if ok && pgErr.Code == errUniqueConstraint {
			return errors.Wrapf(err, "users table rewritten concurrently (constraint %s)", pgErr.ConstraintName)
		}
		return errors.WithStack(err)
	}
	return nil
}
