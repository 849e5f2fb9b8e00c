package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/krishimitra/authservice/internal/auth/application"
)

const DefaultPath = "users.json"

type rawUser struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Occupation string `json:"occupation"`
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type repository struct {
	path string
}

// New returns a repository keeping all users as one JSON array in the file at path.
func New(path string) application.Repository {
	return &repository{
		path: path,
	}
}

func (r *repository) LoadAll(_ context.Context) ([]application.User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithStack(application.ErrStoreNotFound)
		}
		return nil, errors.WithStack(err)
	}

	var raws []rawUser
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", r.path)
	}

	users := make([]application.User, 0, len(raws))
	for _, raw := range raws {
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
	return users, nil
}

// SaveAll replaces the file contents. The new list is written to a
// temporary file first and renamed over the old one.
func (r *repository) SaveAll(_ context.Context, users []application.User) error {
	raws := make([]rawUser, 0, len(users))
	for _, u := range users {
		raws = append(raws, rawUser{
			Name:       u.Name,
			Email:      u.Email,
			Password:   u.Password,
			Occupation: string(u.Occupation),
			Age:        u.Age,
			Gender:     u.Gender,
			Phone:      u.Phone,
		})
	}

	data, err := json.MarshalIndent(raws, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WithStack(err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return errors.WithStack(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp.Name(), r.path))
}
