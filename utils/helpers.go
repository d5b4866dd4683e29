package utils

import (
	"fmt"
	"math/rand"
	"os"
)

// GetEnv returns the value of the environment variable or the fallback when it
// is unset or empty.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// CreateFolder creates the directory (and parents) if it does not exist.
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return nil
}

// GenerateUniqueID returns a random 32-bit identifier for run records.
func GenerateUniqueID() uint32 {
	return rand.Uint32()
}
