package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a new random UUID v4 string used for clause ids.
// uuid.New panics only if the system random source fails.
func GenerateID() string {
	return uuid.New().String()
}
