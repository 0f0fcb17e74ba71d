package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
	"github.com/ayofalola240/Okra-assessment/internal/report"
	"github.com/google/uuid"
)

// UsersRepo keeps users in process. Used for local runs (STORE_DRIVER=memory)
// and tests.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User
	byEmail map[string]string // email -> id

	now func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return clone(r.items[id]), nil
}

func (r *UsersRepo) Insert(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// the unique index
	if _, taken := r.byEmail[u.Email]; taken {
		return user.User{}, user.ErrDuplicateEmail
	}

	now := r.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	r.items[u.ID] = clone(u)
	r.byEmail[u.Email] = u.ID

	return clone(u), nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return clone(u), nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, mutate func(user.User) user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	next := mutate(clone(current))

	// identity and housekeeping are store-owned
	next.ID = current.ID
	next.Email = current.Email
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.now()

	if next.UpdatedAt.Before(current.UpdatedAt) {
		next.UpdatedAt = current.UpdatedAt
	}

	r.items[id] = clone(next)

	return clone(next), nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	delete(r.items, id)
	delete(r.byEmail, u.Email)

	return u, nil
}

func (r *UsersRepo) ListPage(ctx context.Context, offset, limit int) ([]user.User, int, error) {
	r.mu.RLock()
	all := r.sortedLocked()
	r.mu.RUnlock()

	total := len(all)

	if offset < 0 || offset >= total {
		return []user.User{}, total, nil
	}

	end := total
	if limit < total-offset {
		end = offset + limit
	}

	return all[offset:end], total, nil
}

func (r *UsersRepo) AggregateByCity(ctx context.Context) ([]user.CityStat, error) {
	r.mu.RLock()
	all := r.sortedLocked()
	r.mu.RUnlock()

	return report.GroupByCity(all), nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return nil
}

// stable ordering for pagination
func (r *UsersRepo) sortedLocked() []user.User {
	out := make([]user.User, 0, len(r.items))

	for _, u := range r.items {
		out = append(out, clone(u))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func clone(u user.User) user.User {
	if u.Roles != nil {
		roles := make([]user.Role, len(u.Roles))
		copy(roles, u.Roles)
		u.Roles = roles
	}

	return u
}
