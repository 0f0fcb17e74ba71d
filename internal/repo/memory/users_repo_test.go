package memory

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
)

func TestUsersRepo_InsertAssignsIdentity(t *testing.T) {
	r := NewUsersRepo()

	u, err := r.Insert(context.Background(), user.User{Email: "a@example.com", FirstName: "A"})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	got, err := r.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUsersRepo_EmailIsCaseSensitive(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	_, err := r.Insert(ctx, user.User{Email: "a@example.com"})
	require.NoError(t, err)

	_, err = r.Insert(ctx, user.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	_, err = r.Insert(ctx, user.User{Email: "A@example.com"})
	assert.NoError(t, err)
}

func TestUsersRepo_UpdateKeepsStoreOwnedFields(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	created, err := r.Insert(ctx, user.User{Email: "a@example.com", FirstName: "A"})
	require.NoError(t, err)

	r.now = func() time.Time { return created.UpdatedAt.Add(time.Hour) }

	updated, err := r.Update(ctx, created.ID, func(u user.User) user.User {
		u.ID = "hijack"
		u.Email = "other@example.com"
		u.FirstName = "B"
		return u
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "a@example.com", updated.Email)
	assert.Equal(t, "B", updated.FirstName)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = r.Update(ctx, "missing", func(u user.User) user.User { return u })
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_ReturnedRolesAreCopies(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	created, err := r.Insert(ctx, user.User{Email: "a@example.com", Roles: []user.Role{user.RoleUser}})
	require.NoError(t, err)

	created.Roles[0] = user.RoleAdmin

	got, err := r.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []user.Role{user.RoleUser}, got.Roles)
}

func TestUsersRepo_DeleteAndList(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	var ids []string
	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		u, err := r.Insert(ctx, user.User{Email: email})
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	page, total, err := r.ListPage(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)

	deleted, err := r.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", deleted.Email)

	_, err = r.Delete(ctx, ids[0])
	assert.ErrorIs(t, err, user.ErrNotFound)

	page, total, err = r.ListPage(ctx, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestUsersRepo_ListPageOffsetBounds(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	_, err := r.Insert(ctx, user.User{Email: "a@x.io"})
	require.NoError(t, err)

	for _, offset := range []int{-1, math.MinInt, math.MaxInt} {
		page, total, err := r.ListPage(ctx, offset, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Empty(t, page, "offset %d", offset)
	}

	page, _, err := r.ListPage(ctx, 0, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestUsersRepo_AggregateByCity(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	for i, c := range []string{"Lagos", "Lagos", "", "Abuja"} {
		_, err := r.Insert(ctx, user.User{Email: fmt.Sprintf("u%d@x.io", i), Address: user.Address{City: c}, Age: 30})
		require.NoError(t, err)
	}

	groups, err := r.AggregateByCity(ctx)
	require.NoError(t, err)

	require.Len(t, groups, 3)
	assert.Equal(t, "Lagos", *groups[0].City)
	assert.Equal(t, 2, groups[0].TotalUsers)
	assert.Equal(t, "Abuja", *groups[1].City)
	assert.Nil(t, groups[2].City)
}
