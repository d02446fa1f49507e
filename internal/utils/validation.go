package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode"
)

// Pre-compiled regular expressions for input validation
var (
	// Email validation regex
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	// Scan target validation regex (fully qualified domain name)
	scanTargetRegex = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

	// Scanner display name validation regex
	scannerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _.-]+$`)

	// Scanner subdomain label validation regex (RFC 1035 label)
	subdomainRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

	// Branding color validation regex (6-digit hex, leading # optional)
	hexColorRegex = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

	// Username validation regex
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{2,29}$`)
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"` // The invalid value (sanitized for sensitive fields)
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsSensitiveField checks if a field is sensitive and should not be logged
func IsSensitiveField(field string) bool {
	lowerField := strings.ToLower(field)
	sensitiveFields := []string{
		"password", "token", "secret", "key", "auth", "cred", "private",
	}

	for _, sensitive := range sensitiveFields {
		if strings.Contains(lowerField, sensitive) {
			return true
		}
	}

	return false
}

// SanitizeValue sanitizes a value for logging
func SanitizeValue(field string, value interface{}) string {
	// Don't include values for sensitive fields
	if IsSensitiveField(field) {
		return "[REDACTED]"
	}

	switch v := value.(type) {
	case string:
		return TruncateString(v, 100)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// ValidationResult contains the result of a validation operation.
type ValidationResult struct {
	Errors []*ValidationError `json:"errors"`
}

// NewValidationResult creates a new ValidationResult.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Errors: []*ValidationError{},
	}
}

// AddError adds an error to the validation result.
func (vr *ValidationResult) AddError(field, code, message string, value ...interface{}) {
	var valueStr string
	if len(value) > 0 {
		valueStr = SanitizeValue(field, value[0])
	}

	vr.Errors = append(vr.Errors, &ValidationError{
		Field:   field,
		Code:    code,
		Message: message,
		Value:   valueStr,
	})
}

// IsValid returns true if the validation passed.
func (vr *ValidationResult) IsValid() bool {
	return len(vr.Errors) == 0
}

// GetErrors returns all validation errors.
func (vr *ValidationResult) GetErrors() []*ValidationError {
	return vr.Errors
}

// First returns the first error or nil if there are no errors.
func (vr *ValidationResult) First() *ValidationError {
	if len(vr.Errors) == 0 {
		return nil
	}
	return vr.Errors[0]
}

// ErrorMessages returns all error messages.
func (vr *ValidationResult) ErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// ErrorsByField returns a map of field names to error messages.
func (vr *ValidationResult) ErrorsByField() map[string]string {
	errors := make(map[string]string)
	for _, err := range vr.Errors {
		errors[err.Field] = err.Message
	}
	return errors
}

// MergeResults merges the errors from another ValidationResult into this one.
func (vr *ValidationResult) MergeResults(other *ValidationResult) {
	vr.Errors = append(vr.Errors, other.Errors...)
}

// ToJSON returns the validation result as a JSON string.
func (vr *ValidationResult) ToJSON() (string, error) {
	bytes, err := json.Marshal(vr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// MaxLength is the maximum allowed length
	MaxLength int

	// MinLength is the minimum allowed length
	MinLength int

	// Required specifies if the value is required
	Required bool

	// StrictMode enables stricter validation rules
	StrictMode bool

	// AllowedValues is a list of allowed values
	AllowedValues []string

	// DisallowedValues is a list of disallowed values
	DisallowedValues []string

	// CustomValidation is a custom validation function
	CustomValidation func(interface{}) error

	// SanitizeOutput determines if output should be sanitized
	SanitizeOutput bool
}

// Default validation options
var (
	DefaultOptions = ValidationOptions{
		MaxLength:  256,
		MinLength:  1,
		Required:   true,
		StrictMode: false,
	}

	StrictOptions = ValidationOptions{
		MaxLength:  256,
		MinLength:  1,
		Required:   true,
		StrictMode: true,
	}

	SecurityOptions = ValidationOptions{
		MaxLength:      64,
		MinLength:      8,
		Required:       true,
		StrictMode:     true,
		SanitizeOutput: true,
	}
)

// getOptions returns the validation options, using defaults if not provided
func getOptions(options []ValidationOptions) ValidationOptions {
	if len(options) > 0 {
		return options[0]
	}
	return DefaultOptions
}

// ValidateScanTarget validates a domain submitted for scanning.
func ValidateScanTarget(target string, options ...ValidationOptions) error {
	opts := getOptions(options)

	if target == "" && opts.Required {
		return &ValidationError{
			Field:   "target",
			Code:    "REQUIRED",
			Message: "Scan target is required",
		}
	}

	if target == "" && !opts.Required {
		return nil
	}

	if len(target) > opts.MaxLength {
		return &ValidationError{
			Field:   "target",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Scan target exceeds maximum length of %d", opts.MaxLength),
			Value:   target,
		}
	}

	// IP address targets are accepted directly
	if ip := net.ParseIP(target); ip != nil {
		if opts.StrictMode && (isPrivateIP(ip) || isLoopbackIP(ip) || isLinkLocalIP(ip)) {
			return &ValidationError{
				Field:   "target",
				Code:    "SECURITY_RISK",
				Message: "Scanning private, loopback or link-local addresses is not allowed",
				Value:   target,
			}
		}
		return nil
	}

	if !scanTargetRegex.MatchString(strings.ToLower(target)) {
		return &ValidationError{
			Field:   "target",
			Code:    "INVALID_FORMAT",
			Message: "Scan target must be a fully qualified domain name or IP address",
			Value:   target,
		}
	}

	if opts.StrictMode {
		// Reserved hostnames that must never be scanned
		blockedSuffixes := []string{".localhost", ".local", ".internal"}
		for _, suffix := range blockedSuffixes {
			if strings.HasSuffix(strings.ToLower(target), suffix) {
				return &ValidationError{
					Field:   "target",
					Code:    "SECURITY_RISK",
					Message: "Scanning internal hostnames is not allowed",
					Value:   target,
				}
			}
		}
	}

	return nil
}

// ValidateScannerName validates a scanner display name.
func ValidateScannerName(name string, options ...ValidationOptions) error {
	opts := getOptions(options)

	if name == "" && opts.Required {
		return &ValidationError{
			Field:   "scannerName",
			Code:    "REQUIRED",
			Message: "Scanner name is required",
		}
	}

	if name == "" && !opts.Required {
		return nil
	}

	if len(name) > opts.MaxLength {
		return &ValidationError{
			Field:   "scannerName",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Scanner name exceeds maximum length of %d", opts.MaxLength),
			Value:   name,
		}
	}

	if len(name) < opts.MinLength {
		return &ValidationError{
			Field:   "scannerName",
			Code:    "TOO_SHORT",
			Message: fmt.Sprintf("Scanner name is shorter than minimum length of %d", opts.MinLength),
			Value:   name,
		}
	}

	if !scannerNameRegex.MatchString(name) {
		return &ValidationError{
			Field:   "scannerName",
			Code:    "INVALID_FORMAT",
			Message: "Invalid scanner name format. Scanner names must start with a letter or number and can contain only alphanumeric characters, spaces, hyphens, underscores, and periods",
			Value:   name,
		}
	}

	return nil
}

// ValidateSubdomain validates a scanner subdomain label.
func ValidateSubdomain(name string, options ...ValidationOptions) error {
	opts := getOptions(options)

	if name == "" && opts.Required {
		return &ValidationError{
			Field:   "subdomain",
			Code:    "REQUIRED",
			Message: "Subdomain is required",
		}
	}

	if name == "" && !opts.Required {
		return nil
	}

	if len(name) > 63 {
		return &ValidationError{
			Field:   "subdomain",
			Code:    "TOO_LONG",
			Message: "Subdomain exceeds maximum length of 63",
			Value:   name,
		}
	}

	if !subdomainRegex.MatchString(name) {
		return &ValidationError{
			Field:   "subdomain",
			Code:    "INVALID_FORMAT",
			Message: "Invalid subdomain format. Subdomains must contain only lowercase letters, numbers and hyphens, and must not start or end with a hyphen",
			Value:   name,
		}
	}

	// Check for reserved subdomains
	reservedNames := []string{"www", "api", "admin", "mail", "app", "portal"}
	for _, reserved := range reservedNames {
		if strings.EqualFold(name, reserved) {
			return &ValidationError{
				Field:   "subdomain",
				Code:    "RESERVED_NAME",
				Message: fmt.Sprintf("'%s' is a reserved subdomain and cannot be used for scanners", name),
				Value:   name,
			}
		}
	}

	return nil
}

// ValidateHexColor validates a branding color value.
func ValidateHexColor(color string, options ...ValidationOptions) error {
	opts := getOptions(options)

	if color == "" && opts.Required {
		return &ValidationError{
			Field:   "color",
			Code:    "REQUIRED",
			Message: "Color is required",
		}
	}

	if color == "" && !opts.Required {
		return nil
	}

	if !hexColorRegex.MatchString(color) {
		return &ValidationError{
			Field:   "color",
			Code:    "INVALID_FORMAT",
			Message: "Color must be a 6-digit hex value such as #02054c",
			Value:   color,
		}
	}

	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string, options ...ValidationOptions) error {
	opts := getOptions(options)

	if email == "" && opts.Required {
		return &ValidationError{
			Field:   "email",
			Code:    "REQUIRED",
			Message: "Email address is required",
		}
	}

	if email == "" && !opts.Required {
		return nil
	}

	if len(email) > opts.MaxLength {
		return &ValidationError{
			Field:   "email",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Email address exceeds maximum length of %d", opts.MaxLength),
			Value:   email,
		}
	}

	if !emailRegex.MatchString(email) {
		return &ValidationError{
			Field:   "email",
			Code:    "INVALID_FORMAT",
			Message: "Invalid email address format",
			Value:   email,
		}
	}

	return nil
}

// ValidateUsername validates a username.
func ValidateUsername(username string, options ...ValidationOptions) error {
	opts := getOptions(options)

	if username == "" && opts.Required {
		return &ValidationError{
			Field:   "username",
			Code:    "REQUIRED",
			Message: "Username is required",
		}
	}

	if username == "" && !opts.Required {
		return nil
	}

	if len(username) > opts.MaxLength {
		return &ValidationError{
			Field:   "username",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Username exceeds maximum length of %d", opts.MaxLength),
			Value:   username,
		}
	}

	if len(username) < opts.MinLength {
		return &ValidationError{
			Field:   "username",
			Code:    "TOO_SHORT",
			Message: fmt.Sprintf("Username is shorter than minimum length of %d", opts.MinLength),
			Value:   username,
		}
	}

	if !usernameRegex.MatchString(username) {
		return &ValidationError{
			Field:   "username",
			Code:    "INVALID_FORMAT",
			Message: "Username must start with a letter or number and can contain only alphanumeric characters, dots, underscores, and hyphens",
			Value:   username,
		}
	}

	return nil
}

// ValidatePassword validates a password.
func ValidatePassword(password string, options ...ValidationOptions) error {
	opts := getOptions(options)

	if password == "" && opts.Required {
		return &ValidationError{
			Field:   "password",
			Code:    "REQUIRED",
			Message: "Password is required",
		}
	}

	if password == "" && !opts.Required {
		return nil
	}

	if len(password) > opts.MaxLength {
		return &ValidationError{
			Field:   "password",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Password exceeds maximum length of %d", opts.MaxLength),
			Value:   "[REDACTED]",
		}
	}

	if len(password) < opts.MinLength {
		return &ValidationError{
			Field:   "password",
			Code:    "TOO_SHORT",
			Message: fmt.Sprintf("Password is shorter than minimum length of %d", opts.MinLength),
			Value:   "[REDACTED]",
		}
	}

	// In strict mode, check for password strength
	if opts.StrictMode {
		hasUpper := false
		hasLower := false
		hasDigit := false
		hasSpecial := false

		for _, c := range password {
			switch {
			case unicode.IsUpper(c):
				hasUpper = true
			case unicode.IsLower(c):
				hasLower = true
			case unicode.IsDigit(c):
				hasDigit = true
			case unicode.IsPunct(c) || unicode.IsSymbol(c):
				hasSpecial = true
			}
		}

		if !hasUpper {
			return &ValidationError{
				Field:   "password",
				Code:    "MISSING_UPPERCASE",
				Message: "Password must contain at least one uppercase letter",
				Value:   "[REDACTED]",
			}
		}

		if !hasLower {
			return &ValidationError{
				Field:   "password",
				Code:    "MISSING_LOWERCASE",
				Message: "Password must contain at least one lowercase letter",
				Value:   "[REDACTED]",
			}
		}

		if !hasDigit {
			return &ValidationError{
				Field:   "password",
				Code:    "MISSING_DIGIT",
				Message: "Password must contain at least one digit",
				Value:   "[REDACTED]",
			}
		}

		if !hasSpecial {
			return &ValidationError{
				Field:   "password",
				Code:    "MISSING_SPECIAL",
				Message: "Password must contain at least one special character",
				Value:   "[REDACTED]",
			}
		}
	}

	return nil
}

// isPrivateIP checks if an IP address is in a private range
func isPrivateIP(ip net.IP) bool {
	// Check IPv4 private ranges
	privateRanges := []struct {
		start net.IP
		end   net.IP
	}{
		{net.ParseIP("10.0.0.0"), net.ParseIP("10.255.255.255")},                        // 10.0.0.0/8
		{net.ParseIP("172.16.0.0"), net.ParseIP("172.31.255.255")},                      // 172.16.0.0/12
		{net.ParseIP("192.168.0.0"), net.ParseIP("192.168.255.255")},                    // 192.168.0.0/16
		{net.ParseIP("169.254.0.0"), net.ParseIP("169.254.255.255")},                    // 169.254.0.0/16 (link-local)
		{net.ParseIP("fd00::"), net.ParseIP("fdff:ffff:ffff:ffff:ffff:ffff:ffff:ffff")}, // fd00::/8 (IPv6 ULA)
	}

	for _, r := range privateRanges {
		if bytes.Compare(ip, r.start) >= 0 && bytes.Compare(ip, r.end) <= 0 {
			return true
		}
	}

	return false
}

// isLoopbackIP checks if an IP address is a loopback address
func isLoopbackIP(ip net.IP) bool {
	return ip.IsLoopback()
}

// isLinkLocalIP checks if an IP address is a link-local address
func isLinkLocalIP(ip net.IP) bool {
	return ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// Scan types known to the platform
var knownScanTypes = []string{"network", "web", "email", "system", "comprehensive"}

// ValidateScanTypes validates the list of scan types enabled for a scanner.
func ValidateScanTypes(scanTypes []string) *ValidationResult {
	result := NewValidationResult()

	if len(scanTypes) == 0 {
		result.AddError("scanTypes", "REQUIRED", "At least one scan type is required")
		return result
	}

	seen := make(map[string]bool)
	for i, scanType := range scanTypes {
		if seen[scanType] {
			result.AddError(
				fmt.Sprintf("scanTypes[%d]", i),
				"DUPLICATE",
				fmt.Sprintf("Scan type '%s' is listed more than once", scanType),
				scanType,
			)
			continue
		}
		seen[scanType] = true

		known := false
		for _, k := range knownScanTypes {
			if scanType == k {
				known = true
				break
			}
		}
		if !known {
			result.AddError(
				fmt.Sprintf("scanTypes[%d]", i),
				"UNKNOWN_TYPE",
				fmt.Sprintf("Unknown scan type: %s", scanType),
				scanType,
			)
		}
	}

	return result
}
