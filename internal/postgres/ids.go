package postgres

import "github.com/google/uuid"

// ValidID reports whether s parses as a uuid. Callers treat any other id
// as matching no row instead of sending it to a uuid column.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
