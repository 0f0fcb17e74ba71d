package utils

import "github.com/google/uuid"

const canonicalUUIDLen = 36

// CanonicalUUID accepts only the 8-4-4-4-12 hyphenated form and returns it
// lowercased. Braced, urn and bare-hex spellings are rejected.
func CanonicalUUID(s string) (string, bool) {
	if len(s) != canonicalUUIDLen {
		return "", false
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}

	return id.String(), true
}
