package utils

import (
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// targetSanitizeRegex strips characters that are not valid in hostnames
var targetSanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9.-]+`)

// NormalizeTarget converts user-entered scan targets into a bare hostname.
// It accepts full URLs ("https://example.com/path"), host:port pairs and
// plain domains, and lowercases the result.
func NormalizeTarget(raw string) string {
	target := strings.TrimSpace(strings.ToLower(raw))
	if target == "" {
		return ""
	}

	// Strip scheme if present
	if strings.Contains(target, "://") {
		if u, err := url.Parse(target); err == nil && u.Host != "" {
			target = u.Host
		} else {
			parts := strings.SplitN(target, "://", 2)
			target = parts[1]
		}
	}

	// Strip path, query and fragment remnants
	for _, sep := range []string{"/", "?", "#"} {
		if idx := strings.Index(target, sep); idx >= 0 {
			target = target[:idx]
		}
	}

	// Strip port
	if host, _, err := net.SplitHostPort(target); err == nil {
		target = host
	}

	// Strip leading www.
	target = strings.TrimPrefix(target, "www.")

	return targetSanitizeRegex.ReplaceAllString(target, "")
}

// SanitizeSubdomain removes invalid characters from a scanner subdomain.
func SanitizeSubdomain(name string) string {
	reg := regexp.MustCompile(`[^a-z0-9-]+`)
	sanitized := reg.ReplaceAllString(strings.ToLower(name), "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		return "scanner"
	}
	return sanitized
}

// FileExists checks if a file exists and is not a directory.
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
