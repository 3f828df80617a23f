package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewWatchID generates a unique watch ID with the "watch_" prefix
func NewWatchID() string {
	return "watch_" + uuid.New().String()
}

// NewRequestID generates a unique request ID with the "req_" prefix
func NewRequestID() string {
	return "req_" + uuid.New().String()
}
