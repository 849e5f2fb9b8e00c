package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/authservice/internal/auth/application"
)

// testDBEnv names a disposable database; the users table in it is dropped.
const testDBEnv = "AUTHSERVICE_TEST_DB_URI"

func TestConvertError(t *testing.T) {
	r := &repository{}

	assert.NoError(t, r.convertError(nil))

	err := r.convertError(pgx.PgError{Code: errUniqueConstraint, ConstraintName: "users_email_key"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, application.ErrDuplicateUser), "a clash during rewrite is not a duplicate registration")
	assert.Contains(t, err.Error(), "users_email_key")

	err = r.convertError(pgx.PgError{Code: "42P01", Message: "relation \"users\" does not exist"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, application.ErrDuplicateUser))

	err = r.convertError(pgx.ErrNoRows)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func newTestPool(t *testing.T) *pgx.ConnPool {
	t.Helper()
	uri := os.Getenv(testDBEnv)
	if uri == "" {
		t.Skipf("%s is not set", testDBEnv)
	}

	connConfig, err := pgx.ParseURI(uri)
	require.NoError(t, err)
	connConfig.PreferSimpleProtocol = true
	pool, err := pgx.NewConnPool(pgx.ConnPoolConfig{ConnConfig: connConfig, MaxConnections: 2})
	require.NoError(t, err)

	schema, err := os.ReadFile("schema.sql")
	require.NoError(t, err)
	_, err = pool.Exec("DROP TABLE IF EXISTS users")
	require.NoError(t, err)
	_, err = pool.Exec(string(schema))
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = pool.Exec("DROP TABLE IF EXISTS users")
		pool.Close()
	})
	return pool
}

var (
	asha  = application.User{Name: "Asha", Email: "asha@x.com", Password: "pw123", Occupation: application.OccupationFarmer, Phone: "9845000000"}
	ravi  = application.User{Name: "Ravi", Email: "ravi@x.com", Password: "pw", Occupation: application.OccupationCustomer, Age: "41", Gender: "false"}
	meena = application.User{Name: "Meena", Email: "meena@x.com", Password: "m", Occupation: application.OccupationFarmer}
)

func TestLoadAll_EmptyTableIsEmptyStore(t *testing.T) {
	repo := New(newTestPool(t))

	users, err := repo.LoadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, users)
	assert.False(t, errors.Is(err, application.ErrStoreNotFound))
}

func TestSaveAll_KeepsOrder(t *testing.T) {
	repo := New(newTestPool(t))
	want := []application.User{ravi, meena, asha}

	require.NoError(t, repo.SaveAll(context.Background(), want))
	got, err := repo.LoadAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveAll_ReplacesWholeTable(t *testing.T) {
	repo := New(newTestPool(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveAll(ctx, []application.User{asha, ravi}))
	require.NoError(t, repo.SaveAll(ctx, []application.User{meena}))

	got, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []application.User{meena}, got)

	require.NoError(t, repo.SaveAll(ctx, nil))
	got, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveAll_UniqueViolationRollsBack(t *testing.T) {
	repo := New(newTestPool(t))
	ctx := context.Background()
	require.NoError(t, repo.SaveAll(ctx, []application.User{asha, ravi}))

	clash := asha
	clash.Name = "Asha2"
	err := repo.SaveAll(ctx, []application.User{meena, asha, clash})

	require.Error(t, err)
	assert.False(t, errors.Is(err, application.ErrDuplicateUser))
	got, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []application.User{asha, ravi}, got)
}

func TestServicesOverPostgres(t *testing.T) {
	repo := New(newTestPool(t))
	identity := application.NewIdentityService(repo)
	auth := application.NewAuthService(repo)
	ctx := context.Background()

	require.NoError(t, identity.Register(ctx, asha))
	err := identity.Register(ctx, application.User{Name: "Asha2", Email: "asha@x.com", Password: "pw456", Occupation: application.OccupationCustomer})
	assert.True(t, errors.Is(err, application.ErrDuplicateUser))

	user, err := auth.Login(ctx, "asha@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.Name)

	_, err = auth.Login(ctx, "asha@x.com", "wrong")
	assert.True(t, errors.Is(err, application.ErrInvalidCredentials))
}
