package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed    = errors.New("failed to hash password")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
)

// PasswordConfig contains configuration for password handling
type PasswordConfig struct {
	// MinLength is the minimum accepted password length
	MinLength int

	// MaxLength is the maximum accepted password length
	MaxLength int

	// HashCost is the bcrypt cost parameter. Tests use bcrypt.MinCost to
	// keep hashing fast.
	HashCost int
}

// DefaultPasswordConfig returns the password rules applied to portal accounts.
func DefaultPasswordConfig() PasswordConfig {
	return PasswordConfig{
		MinLength: 8,
		MaxLength: 72, // bcrypt truncates beyond 72 bytes
		HashCost:  bcrypt.DefaultCost,
	}
}

// PasswordService hashes and verifies portal account passwords.
type PasswordService struct {
	Config PasswordConfig
}

// NewPasswordService creates a new password service with the provided configuration
func NewPasswordService(config PasswordConfig) *PasswordService {
	return &PasswordService{
		Config: config,
	}
}

// HashPassword validates the password against the configured rules and
// returns its bcrypt hash.
func (s *PasswordService) HashPassword(password string) (string, error) {
	if err := s.ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Config.HashCost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}

	return string(hash), nil
}

// CheckPassword verifies if a password matches a hash
func (s *PasswordService) CheckPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword checks a password against the configured length rules.
func (s *PasswordService) ValidatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	if len(password) < s.Config.MinLength {
		return fmt.Errorf("%w: minimum length is %d", ErrPasswordTooShort, s.Config.MinLength)
	}

	if len(password) > s.Config.MaxLength {
		return fmt.Errorf("%w: maximum length is %d", ErrPasswordTooLong, s.Config.MaxLength)
	}

	return nil
}
