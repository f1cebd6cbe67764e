package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique pipeline run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewEntityUUID generates a bare UUID for loaded entities that arrive
// without one
func NewEntityUUID() string {
	return uuid.New().String()
}
