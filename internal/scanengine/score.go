package scanengine

// Risk level boundaries and their display colors.
const (
	riskColorLow       = "#28a745"
	riskColorLowMedium = "#5cb85c"
	riskColorMedium    = "#17a2b8"
	riskColorMedHigh   = "#ffc107"
	riskColorHigh      = "#fd7e14"
	riskColorCritical  = "#dc3545"
)

// severityDeduction maps finding severities to their score cost.
func severityDeduction(s Severity) int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 2
	default:
		return 0
	}
}

// componentMultiplier weights deductions when computing per-category scores.
func componentMultiplier(c Category) float64 {
	switch c {
	case CategoryNetwork:
		return 1.5
	case CategoryWeb:
		return 1.0
	case CategoryEmail:
		return 0.5
	case CategorySystem:
		return 0.8
	default:
		return 1.0
	}
}

// Deductions sums the score cost of the collected scan signals. The TLS
// certificate state and the aggregate header score contribute fixed
// penalties; every finding adds its severity cost on top. Callers must not
// pass findings already priced through the certificate or header penalty,
// or those issues get counted twice.
func Deductions(findings []Finding, ssl *SSLInfo, headerScore int) int {
	deductions := 0

	if ssl != nil {
		switch ssl.Status {
		case SSLStatusExpired, SSLStatusError:
			deductions += 15
		case SSLStatusInvalid:
			deductions += 10
		case SSLStatusExpiring:
			deductions += 5
		}
	}

	if headerScore < 50 {
		deductions += 10
	} else if headerScore < 75 {
		deductions += 5
	}

	for _, f := range findings {
		deductions += severityDeduction(f.Severity)
	}

	return deductions
}

// ComputeScore derives the overall security score from the deduction total,
// starting at 100 and clamped to [0, 100].
func ComputeScore(findings []Finding, ssl *SSLInfo, headerScore int) int {
	return clampScore(100 - Deductions(findings, ssl, headerScore))
}

// ComponentScore derives a per-category score from the overall deduction
// total. Every category sees the same deductions, weighted by its
// multiplier, so a single severe issue drags every component down.
func ComponentScore(category Category, deductions int) int {
	return clampScore(int(100 - float64(deductions)*componentMultiplier(category)))
}

// RiskLevel maps a security score to its risk label and display color.
func RiskLevel(score int) (string, string) {
	switch {
	case score >= 90:
		return "Low", riskColorLow
	case score >= 80:
		return "Low-Medium", riskColorLowMedium
	case score >= 70:
		return "Medium", riskColorMedium
	case score >= 60:
		return "Medium-High", riskColorMedHigh
	case score >= 50:
		return "High", riskColorHigh
	default:
		return "Critical", riskColorCritical
	}
}

// Grade maps a security score to a letter grade.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
