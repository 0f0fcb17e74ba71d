package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayofalola240/Okra-assessment/internal/db"
	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: user.ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: user.ErrDuplicateEmail},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, want: user.ErrStoreUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: user.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate("users.op", tt.err), tt.want)
		})
	}

	assert.NoError(t, translate("users.op", nil))

	other := errors.New("syntax")
	assert.ErrorIs(t, translate("users.op", other), other)
}

func newTestRepo(t *testing.T) (*UsersRepo, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn, 10)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE users`)
	require.NoError(t, err)

	return NewUsersRepo(pool, nil), pool
}

func newUser(email, city string) user.User {
	return user.User{
		Email:     email,
		FirstName: "Ada",
		LastName:  "Obi",
		Gender:    user.GenderFemale,
		Roles:     []user.Role{user.RoleUser, user.RoleAdmin},
		DOB:       time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC),
		Age:       24,
		Address:   user.Address{City: city, State: "Lagos"},
	}
}

func TestUsersRepo_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("ada@example.com", "Lagos"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []user.Role{user.RoleUser, user.RoleAdmin}, created.Roles)

	got, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.DOB.Equal(got.DOB))

	_, err = repo.Insert(ctx, newUser("ada@example.com", "Abuja"))
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	updated, err := repo.Update(ctx, created.ID, func(u user.User) user.User {
		u.Address.City = "Abuja"
		return u
	})
	require.NoError(t, err)
	assert.Equal(t, "Abuja", updated.Address.City)
	assert.Equal(t, "Lagos", updated.Address.State)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Abuja", deleted.Address.City)

	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_ConcurrentInsertSameEmail(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := repo.Insert(ctx, newUser("race@example.com", "Lagos"))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}

			assert.ErrorIs(t, err, user.ErrDuplicateEmail)
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestUsersRepo_ConcurrentUpdatesSerialize(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("count@example.com", "Lagos"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := repo.Update(ctx, created.ID, func(u user.User) user.User {
				u.Age++
				return u
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Age+10, got.Age)
}

func TestUsersRepo_ListPageAndAggregate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	cities := []string{"Lagos", "", "Abuja", "Lagos"}
	for i, c := range cities {
		_, err := repo.Insert(ctx, newUser(fmt.Sprintf("u%d@example.com", i), c))
		require.NoError(t, err)
	}

	page, total, err := repo.ListPage(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 2)

	page, total, err = repo.ListPage(ctx, 50, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)

	page, total, err = repo.ListPage(ctx, math.MaxInt, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)

	groups, err := repo.AggregateByCity(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "Lagos", *groups[0].City)
	assert.Equal(t, 2, groups[0].TotalUsers)
	assert.InDelta(t, 24.0, groups[0].AverageAge, 1e-9)
	assert.Equal(t, "Ada Obi", groups[0].Users[0].FullName)
	assert.Equal(t, "Abuja", *groups[1].City)
	assert.Nil(t, groups[2].City)
	assert.Nil(t, groups[2].Users[0].City)
}
