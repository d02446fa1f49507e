package scanengine

import (
	"strings"
)

// ClientSystem describes the OS, browser and device type detected from the
// submitting visitor's User-Agent.
type ClientSystem struct {
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	DeviceType string `json:"device_type"`
}

// DetectClientSystem classifies the User-Agent string of the visitor who
// submitted the scan.
func DetectClientSystem(userAgent string) ClientSystem {
	ua := strings.ToLower(userAgent)

	sys := ClientSystem{OS: "Unknown", Browser: "Unknown", DeviceType: "desktop"}

	switch {
	case strings.Contains(ua, "windows nt 10"):
		sys.OS = "Windows 10/11"
	case strings.Contains(ua, "windows"):
		sys.OS = "Windows"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		sys.OS = "iOS"
	case strings.Contains(ua, "mac os x"), strings.Contains(ua, "macintosh"):
		sys.OS = "macOS"
	case strings.Contains(ua, "android"):
		sys.OS = "Android"
	case strings.Contains(ua, "linux"):
		sys.OS = "Linux"
	}

	switch {
	case strings.Contains(ua, "edg/"):
		sys.Browser = "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		sys.Browser = "Opera"
	case strings.Contains(ua, "chrome/"):
		sys.Browser = "Chrome"
	case strings.Contains(ua, "firefox/"):
		sys.Browser = "Firefox"
	case strings.Contains(ua, "safari/"):
		sys.Browser = "Safari"
	}

	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		sys.DeviceType = "tablet"
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		sys.DeviceType = "mobile"
	}

	return sys
}

// checkClientSystem reports the visitor's platform. Outdated platforms are
// worth calling out in the report but carry no score weight on their own.
func (e *Engine) checkClientSystem(userAgent string) CheckResult {
	result := CheckResult{Check: "client_system", Category: CategorySystem}

	if userAgent == "" {
		result.Details = map[string]interface{}{"detected": false}
		return result
	}

	sys := DetectClientSystem(userAgent)
	result.Details = map[string]interface{}{
		"detected":    true,
		"os":          sys.OS,
		"browser":     sys.Browser,
		"device_type": sys.DeviceType,
	}

	ua := strings.ToLower(userAgent)
	outdated := []string{"windows nt 6.1", "windows nt 6.0", "windows nt 5.1", "msie "}
	for _, marker := range outdated {
		if strings.Contains(ua, marker) {
			result.Findings = append(result.Findings, Finding{
				Category:       CategorySystem,
				Severity:       SeverityMedium,
				Title:          "Outdated operating system or browser detected",
				Description:    "The scan was submitted from a platform that no longer receives security updates",
				Recommendation: "Update to a supported operating system and browser",
				Evidence:       userAgent,
			})
			break
		}
	}

	return result
}
