package user

import "time"

// AgeAt returns the whole years elapsed between dob and now, both read as
// UTC calendar dates.
func AgeAt(dob, now time.Time) int {
	dob = dob.UTC()
	now = now.UTC()

	age := now.Year() - dob.Year()

	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}

	return age
}

// Derive recomputes every derived field. It runs on every save, whether or
// not dob changed.
func Derive(u User, now time.Time) User {
	u.Age = AgeAt(u.DOB, now)

	return u
}
