// Package service sequences normalization, derivation and persistence for
// every user write.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
	"github.com/ayofalola240/Okra-assessment/internal/utils"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// UserStore is the persistence boundary. Adapters own id assignment,
// timestamps and the unique index on email.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Insert(ctx context.Context, u user.User) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	// Update loads the record under the store's own concurrency control,
	// applies mutate and persists the result.
	Update(ctx context.Context, id string, mutate func(user.User) user.User) (user.User, error)
	Delete(ctx context.Context, id string) (user.User, error)
	ListPage(ctx context.Context, offset, limit int) ([]user.User, int, error)
}

type Page struct {
	Items      []user.User
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

type Users struct {
	store UserStore
	now   func() time.Time
}

// NewUsers builds the orchestrator. A nil clock means time.Now.
func NewUsers(store UserStore, now func() time.Time) *Users {
	if now == nil {
		now = time.Now
	}

	return &Users{store: store, now: now}
}

func (s *Users) Create(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	dob, err := user.ParseDate(req.DOB)

	if err != nil {
		return user.User{}, fmt.Errorf("%w: %v", user.ErrInvalidDOB, err)
	}

	// fast path only; the store's unique index is the real guard
	_, err = s.store.FindByEmail(ctx, req.Email)

	switch {
	case err == nil:
		return user.User{}, user.ErrDuplicateEmail
	case !errors.Is(err, user.ErrNotFound):
		return user.User{}, err
	}

	u := s.prepare(user.NewFromCreateRequest(req, dob))

	return s.store.Insert(ctx, u)
}

func (s *Users) Get(ctx context.Context, id string) (user.User, error) {
	id, ok := utils.CanonicalUUID(id)
	if !ok {
		return user.User{}, user.ErrInvalidID
	}

	return s.store.FindByID(ctx, id)
}

func (s *Users) List(ctx context.Context, page, pageSize int) (Page, error) {
	page, pageSize = NormalizePageParams(page, pageSize)

	items, total, err := s.store.ListPage(ctx, pageOffset(page, pageSize), pageSize)

	if err != nil {
		return Page{}, err
	}

	if items == nil {
		items = []user.User{}
	}

	return Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Update applies the allow-listed fields of req, then re-runs the write
// pipeline on the merged record.
func (s *Users) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	id, ok := utils.CanonicalUUID(id)
	if !ok {
		return user.User{}, user.ErrInvalidID
	}

	return s.store.Update(ctx, id, func(current user.User) user.User {
		return s.prepare(user.ApplyUpdate(current, req))
	})
}

// Delete returns the record as it was just before removal.
func (s *Users) Delete(ctx context.Context, id string) (user.User, error) {
	id, ok := utils.CanonicalUUID(id)
	if !ok {
		return user.User{}, user.ErrInvalidID
	}

	return s.store.Delete(ctx, id)
}

// normalize -> derive, in that order, before every store write
func (s *Users) prepare(u user.User) user.User {
	return user.Derive(user.Normalize(u), s.now())
}

// pageOffset saturates at math.MaxInt instead of wrapping, so an absurd
// page number reads as past the end.
func pageOffset(page, pageSize int) int {
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}

	return (page - 1) * pageSize
}

func NormalizePageParams(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}

	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return page, pageSize
}
