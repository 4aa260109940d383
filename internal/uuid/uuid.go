// Package uuid generates identifiers for database records.
package uuid

import (
	"strings"

	googleuuid "github.com/google/uuid"
)

// New generates a time-ordered UUIDv7 suitable for use as a primary key.
// Falls back to a random UUIDv4 if the system clock or entropy source fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// Deterministic derives a stable UUIDv5 from the given parts. The same parts
// always produce the same ID, which gives re-ingested transactions stable
// provenance identifiers.
func Deterministic(parts ...string) string {
	return googleuuid.NewSHA1(googleuuid.NameSpaceOID, []byte(strings.Join(parts, ":"))).String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
