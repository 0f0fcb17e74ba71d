package user

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate accepts a plain calendar date or a full RFC 3339 timestamp and
// returns midnight UTC of that date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	t, err := time.Parse(dateLayout, raw)

	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)

		if err != nil {
			return time.Time{}, err
		}
	}

	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// NewFromCreateRequest builds an unsaved record with defaults applied. ID
// and timestamps are left for the store.
func NewFromCreateRequest(req CreateUserRequest, dob time.Time) User {
	gender := req.Gender
	if gender == "" {
		gender = GenderOther
	}

	roles := dedupeRoles(req.Roles)
	if len(roles) == 0 {
		roles = []Role{RoleUser}
	}

	u := User{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		UserName:    req.UserName,
		PhoneNumber: req.PhoneNumber,
		Gender:      gender,
		Roles:       roles,
		DOB:         dob,
	}

	if req.Address != nil {
		u.Address = mergeAddress(u.Address, *req.Address)
	}

	return u
}

// ApplyUpdate copies the allow-listed fields present in req onto u.
func ApplyUpdate(u User, req UpdateUserRequest) User {
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.UserName != nil {
		u.UserName = *req.UserName
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}
	if req.Gender != nil {
		u.Gender = *req.Gender
	}
	if req.Address != nil {
		u.Address = mergeAddress(u.Address, *req.Address)
	}

	return u
}

func mergeAddress(current Address, in AddressInput) Address {
	if in.LGA != nil {
		current.LGA = *in.LGA
	}
	if in.City != nil {
		current.City = *in.City
	}
	if in.State != nil {
		current.State = *in.State
	}

	return current
}

// roles are a set
func dedupeRoles(in []Role) []Role {
	out := make([]Role, 0, len(in))
	seen := make(map[Role]struct{}, len(in))

	for _, r := range in {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	return out
}
