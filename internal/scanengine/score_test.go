package scanengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeScore_Deductions(t *testing.T) {
	tests := []struct {
		name        string
		findings    []Finding
		ssl         *SSLInfo
		headerScore int
		want        int
	}{
		{
			name:        "Clean scan keeps full score",
			headerScore: 100,
			ssl:         &SSLInfo{Status: SSLStatusValid},
			want:        100,
		},
		{
			name:        "Expired certificate costs 15",
			ssl:         &SSLInfo{Status: SSLStatusExpired},
			headerScore: 100,
			want:        85,
		},
		{
			name:        "TLS error costs 15",
			ssl:         &SSLInfo{Status: SSLStatusError},
			headerScore: 100,
			want:        85,
		},
		{
			name:        "Invalid certificate costs 10",
			ssl:         &SSLInfo{Status: SSLStatusInvalid},
			headerScore: 100,
			want:        90,
		},
		{
			name:        "Expiring certificate costs 5",
			ssl:         &SSLInfo{Status: SSLStatusExpiring},
			headerScore: 100,
			want:        95,
		},
		{
			name:        "Weak header score costs 10",
			ssl:         &SSLInfo{Status: SSLStatusValid},
			headerScore: 49,
			want:        90,
		},
		{
			name:        "Middling header score costs 5",
			ssl:         &SSLInfo{Status: SSLStatusValid},
			headerScore: 74,
			want:        95,
		},
		{
			name:        "Header score of 75 costs nothing",
			ssl:         &SSLInfo{Status: SSLStatusValid},
			headerScore: 75,
			want:        100,
		},
		{
			name:        "Severity deductions stack",
			ssl:         &SSLInfo{Status: SSLStatusValid},
			headerScore: 100,
			findings: []Finding{
				{Severity: SeverityCritical},
				{Severity: SeverityHigh},
				{Severity: SeverityMedium},
				{Severity: SeverityLow},
				{Severity: SeverityInfo},
			},
			want: 83,
		},
		{
			name:        "Score clamps at zero",
			headerScore: 0,
			ssl:         &SSLInfo{Status: SSLStatusExpired},
			findings: []Finding{
				{Severity: SeverityCritical}, {Severity: SeverityCritical},
				{Severity: SeverityCritical}, {Severity: SeverityCritical},
				{Severity: SeverityCritical}, {Severity: SeverityCritical},
				{Severity: SeverityCritical}, {Severity: SeverityCritical},
			},
			want: 0,
		},
		{
			name:        "No TLS info skips certificate deductions",
			ssl:         nil,
			headerScore: 100,
			want:        100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeScore(tt.findings, tt.ssl, tt.headerScore))
		})
	}
}

func TestRiskLevel_Boundaries(t *testing.T) {
	tests := []struct {
		score     int
		wantLevel string
		wantColor string
	}{
		{100, "Low", "#28a745"},
		{90, "Low", "#28a745"},
		{89, "Low-Medium", "#5cb85c"},
		{80, "Low-Medium", "#5cb85c"},
		{79, "Medium", "#17a2b8"},
		{70, "Medium", "#17a2b8"},
		{69, "Medium-High", "#ffc107"},
		{60, "Medium-High", "#ffc107"},
		{59, "High", "#fd7e14"},
		{50, "High", "#fd7e14"},
		{49, "Critical", "#dc3545"},
		{0, "Critical", "#dc3545"},
	}

	for _, tt := range tests {
		level, color := RiskLevel(tt.score)
		assert.Equal(t, tt.wantLevel, level, "score %d", tt.score)
		assert.Equal(t, tt.wantColor, color, "score %d", tt.score)
	}
}

func TestGrade_Boundaries(t *testing.T) {
	assert.Equal(t, "A", Grade(100))
	assert.Equal(t, "A", Grade(90))
	assert.Equal(t, "B", Grade(89))
	assert.Equal(t, "B", Grade(80))
	assert.Equal(t, "C", Grade(79))
	assert.Equal(t, "C", Grade(70))
	assert.Equal(t, "D", Grade(69))
	assert.Equal(t, "D", Grade(60))
	assert.Equal(t, "F", Grade(59))
	assert.Equal(t, "F", Grade(0))
}

func TestComponentScore_Multipliers(t *testing.T) {
	// Every component shares the same deduction total, so a deduction of 10
	// ripples through each category at its own weight.
	assert.Equal(t, 85, ComponentScore(CategoryNetwork, 10)) // 100 - 10*1.5
	assert.Equal(t, 90, ComponentScore(CategoryWeb, 10))     // 100 - 10*1.0
	assert.Equal(t, 95, ComponentScore(CategoryEmail, 10))   // 100 - 10*0.5
	assert.Equal(t, 92, ComponentScore(CategorySystem, 10))  // 100 - 10*0.8
}

func TestComponentScore_Clamps(t *testing.T) {
	assert.Equal(t, 0, ComponentScore(CategoryNetwork, 200))
	assert.Equal(t, 100, ComponentScore(CategoryEmail, 0))
}

func TestScoring_CertificateAndHeaderPenaltiesNotDoubled(t *testing.T) {
	// A site with every security header missing and an expired certificate
	// pays 10 for the header score and 15 for the certificate, nothing more.
	// The findings those checks emit exist only for the report, so they are
	// excluded from the deduction pool.
	results := &Results{
		ScanTypes:   []string{"network", "web", "email", "system"},
		HeaderScore: 0,
		SSL:         &SSLInfo{Status: SSLStatusExpired},
		Checks: []CheckResult{
			{
				Check:    "security_headers",
				Category: CategoryWeb,
				Findings: []Finding{
					{Category: CategoryWeb, Severity: SeverityHigh, Title: "Missing Content-Security-Policy header"},
					{Category: CategoryWeb, Severity: SeverityHigh, Title: "Missing Strict-Transport-Security header"},
					{Category: CategoryWeb, Severity: SeverityMedium, Title: "Missing X-Frame-Options header"},
					{Category: CategoryWeb, Severity: SeverityMedium, Title: "Missing X-Content-Type-Options header"},
				},
			},
			{
				Check:    "ssl_certificate",
				Category: CategoryWeb,
				Findings: []Finding{
					{Category: CategoryWeb, Severity: SeverityCritical, Title: "SSL certificate has expired"},
				},
			},
		},
	}

	deductions := Deductions(results.ScoredFindings(), results.SSL, results.HeaderScore)
	assert.Equal(t, 25, deductions)
	assert.Equal(t, 75, ComputeScore(results.ScoredFindings(), results.SSL, results.HeaderScore))

	// network = 100 - 25*1.5, truncated
	assert.Equal(t, 62, ComponentScore(CategoryNetwork, deductions))
	assert.Equal(t, 75, ComponentScore(CategoryWeb, deductions))
	assert.Equal(t, 87, ComponentScore(CategoryEmail, deductions))
	assert.Equal(t, 80, ComponentScore(CategorySystem, deductions))
}

func TestScoredFindings_KeepsOtherChecks(t *testing.T) {
	results := &Results{
		Checks: []CheckResult{
			{Check: "security_headers", Findings: []Finding{{Severity: SeverityHigh}}},
			{Check: "open_ports", Findings: []Finding{{Severity: SeverityMedium, Title: "Telnet port open"}}},
		},
	}

	scored := results.ScoredFindings()
	assert.Len(t, scored, 1)
	assert.Equal(t, "Telnet port open", scored[0].Title)
	assert.Len(t, results.Findings(), 2)
}
