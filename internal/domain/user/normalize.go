package user

import "strings"

// Nigerian numbers only: a trunk-prefixed national number ("0" + 10 digits)
// becomes the 13 character international form.
const (
	countryCallingCode = "234"
	nationalNumberLen  = 11
)

func NormalizePhone(phone string) string {
	if len(phone) == nationalNumberLen && strings.HasPrefix(phone, "0") {
		return countryCallingCode + phone[1:]
	}

	return phone
}

// Normalize canonicalizes the stored shape of a record. It never fails.
func Normalize(u User) User {
	u.PhoneNumber = NormalizePhone(u.PhoneNumber)

	return u
}
