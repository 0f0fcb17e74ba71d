package user

import (
	"errors"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Address is merged field by field on update, never replaced wholesale.
type Address struct {
	LGA   string `json:"lga,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	UserName    string    `json:"userName,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Gender      Gender    `json:"gender"`
	Roles       []Role    `json:"roles"`
	DOB         time.Time `json:"dob"`
	Age         int       `json:"age"`
	Address     Address   `json:"address"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

var (
	ErrNotFound         = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("user with this email already exists")
	ErrInvalidID        = errors.New("invalid user id")
	ErrInvalidDOB       = errors.New("date of birth must be a valid past date")
	ErrConcurrentUpdate = errors.New("user was modified concurrently")
	ErrStoreUnavailable = errors.New("user store unavailable")
)

type AddressInput struct {
	LGA   *string `json:"lga" binding:"omitempty,max=100"`
	City  *string `json:"city" binding:"omitempty,max=100"`
	State *string `json:"state" binding:"omitempty,max=100"`
}

type CreateUserRequest struct {
	Email       string        `json:"email" binding:"required,email,max=254"`
	FirstName   string        `json:"firstName" binding:"required,max=100"`
	LastName    string        `json:"lastName" binding:"required,max=100"`
	UserName    string        `json:"userName" binding:"omitempty,max=100"`
	PhoneNumber string        `json:"phoneNumber" binding:"omitempty,max=32"`
	Gender      Gender        `json:"gender" binding:"omitempty,oneof=male female other"`
	DOB         string        `json:"dob" binding:"required,pastdate"`
	Roles       []Role        `json:"roles" binding:"omitempty,dive,oneof=user admin"`
	Address     *AddressInput `json:"address"`
}

// UpdateUserRequest is the full set of fields a client may change after
// creation. Anything else in the body is dropped by the decoder.
type UpdateUserRequest struct {
	FirstName   *string       `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName    *string       `json:"lastName" binding:"omitempty,min=1,max=100"`
	UserName    *string       `json:"userName" binding:"omitempty,max=100"`
	PhoneNumber *string       `json:"phoneNumber" binding:"omitempty,max=32"`
	Gender      *Gender       `json:"gender" binding:"omitempty,oneof=male female other"`
	Address     *AddressInput `json:"address"`
}

type UserSummary struct {
	FullName string  `json:"name"`
	City     *string `json:"city"`
	Gender   Gender  `json:"gender"`
	Age      int     `json:"age"`
}

// CityStat is one group of the city report. A nil City is the group of
// users without a city.
type CityStat struct {
	City       *string       `json:"city"`
	AverageAge float64       `json:"averageAge"`
	TotalUsers int           `json:"totalUsers"`
	Users      []UserSummary `json:"users"`
}
