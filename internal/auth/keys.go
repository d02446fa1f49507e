package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Key generation errors
var ErrKeyGeneration = fmt.Errorf("failed to generate random key")

// randomHex returns n random bytes hex-encoded
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateAPIKey generates a 32-character API key for clients and scanners
func GenerateAPIKey() (string, error) {
	return randomHex(16)
}

// GenerateScannerUID generates a unique identifier for a deployed scanner
func GenerateScannerUID() (string, error) {
	suffix, err := randomHex(6)
	if err != nil {
		return "", err
	}
	return "scanner_" + suffix, nil
}

// GenerateScanUID generates a unique identifier for a scan
func GenerateScanUID() (string, error) {
	suffix, err := randomHex(6)
	if err != nil {
		return "", err
	}
	return "scan_" + suffix, nil
}

// GenerateResetToken generates a single-use password reset token
func GenerateResetToken() (string, error) {
	return randomHex(24)
}
