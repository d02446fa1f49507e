package scanengine

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// headerWeights assigns each security header its share of the header score.
var headerWeights = []struct {
	name   string
	weight int
}{
	{"Strict-Transport-Security", 20},
	{"Content-Security-Policy", 20},
	{"X-Frame-Options", 10},
	{"X-Content-Type-Options", 10},
	{"Referrer-Policy", 10},
}

var headerAdvice = map[string]struct {
	description    string
	recommendation string
}{
	"Strict-Transport-Security": {
		description:    "Browsers are not forced to use HTTPS on repeat visits",
		recommendation: "Add a Strict-Transport-Security header to enforce HTTPS",
	},
	"Content-Security-Policy": {
		description:    "Cross-site scripting and injection attacks are not mitigated",
		recommendation: "Implement a Content-Security-Policy header",
	},
	"X-Frame-Options": {
		description:    "Pages can be embedded in frames, enabling clickjacking",
		recommendation: "Add X-Frame-Options: DENY or SAMEORIGIN",
	},
	"X-Content-Type-Options": {
		description:    "Browsers may MIME-sniff responses into executable types",
		recommendation: "Add X-Content-Type-Options: nosniff",
	},
	"Referrer-Policy": {
		description:    "Full URLs may leak to third parties via the Referer header",
		recommendation: "Add a Referrer-Policy header",
	},
}

// headerSeverity maps a header's weight to the severity of its absence.
func headerSeverity(weight int) Severity {
	switch {
	case weight >= 20:
		return SeverityHigh
	case weight >= 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DefaultSensitivePaths are probed when no path list is configured.
var DefaultSensitivePaths = []string{
	"/admin", "/.env", "/.git/config", "/config", "/backup",
	"/phpinfo.php", "/wp-admin", "/server-status",
}

// checkSecurityHeaders fetches the base URL and scores the response's
// security headers as a percentage of the weighted maximum. Each missing
// header becomes a finding for the report; the score deduction happens
// through the returned header score only.
func (e *Engine) checkSecurityHeaders(ctx context.Context, baseURL string) (CheckResult, int) {
	result := CheckResult{Check: "security_headers", Category: CategoryWeb}

	resp, err := e.get(ctx, baseURL)
	if err != nil {
		result.Error = err.Error()
		return result, 0
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	maxScore := 0
	got := 0
	present := map[string]string{}
	for _, hw := range headerWeights {
		maxScore += hw.weight
		if value := resp.Header.Get(hw.name); value != "" {
			got += hw.weight
			present[hw.name] = value
			continue
		}
		advice := headerAdvice[hw.name]
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryWeb,
			Severity:       headerSeverity(hw.weight),
			Title:          fmt.Sprintf("Missing %s header", hw.name),
			Description:    advice.description,
			Recommendation: advice.recommendation,
		})
	}

	headerScore := got * 100 / maxScore
	result.Details = map[string]interface{}{
		"header_score":    headerScore,
		"present_headers": present,
		"http_status":     resp.StatusCode,
	}
	return result, headerScore
}

// checkSSLCertificate connects over TLS and classifies the certificate:
// expired, expiring within 30 days, hostname mismatch or an unreachable
// handshake each produce findings of decreasing severity.
func (e *Engine) checkSSLCertificate(ctx context.Context, target string) (CheckResult, *SSLInfo) {
	result := CheckResult{Check: "ssl_certificate", Category: CategoryWeb}
	info := &SSLInfo{Status: SSLStatusError}

	host := target
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	timeout := e.cfg.CheckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}

	rawConn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		result.Error = err.Error()
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryWeb,
			Severity:       SeverityHigh,
			Title:          "HTTPS is not reachable",
			Description:    "No TLS service answered on port 443",
			Recommendation: "Serve the site over HTTPS with a valid certificate",
		})
		return result, info
	}

	serverName, _, _ := net.SplitHostPort(host)
	conn := tls.Client(rawConn, &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		result.Error = err.Error()
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryWeb,
			Severity:       SeverityHigh,
			Title:          "TLS handshake failed",
			Description:    err.Error(),
			Recommendation: "Fix the TLS configuration on the server",
		})
		return result, info
	}
	defer conn.Close()

	state := conn.ConnectionState()
	info.Protocol = tlsVersionName(state.Version)
	info.CipherSuite = tls.CipherSuiteName(state.CipherSuite)

	if len(state.PeerCertificates) == 0 {
		result.Error = "no peer certificates presented"
		return result, info
	}

	cert := state.PeerCertificates[0]
	now := time.Now()
	info.Subject = cert.Subject.CommonName
	info.Issuer = cert.Issuer.CommonName
	info.NotBefore = cert.NotBefore
	info.NotAfter = cert.NotAfter
	info.DaysRemaining = int(cert.NotAfter.Sub(now).Hours() / 24)

	switch {
	case now.After(cert.NotAfter):
		info.Status = SSLStatusExpired
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryWeb,
			Severity:       SeverityCritical,
			Title:          "SSL certificate has expired",
			Description:    fmt.Sprintf("Certificate expired on %s", cert.NotAfter.Format("2006-01-02")),
			Recommendation: "Renew the SSL certificate immediately",
		})
	case cert.VerifyHostname(serverName) != nil:
		info.Status = SSLStatusInvalid
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryWeb,
			Severity:       SeverityHigh,
			Title:          "SSL certificate does not match the hostname",
			Description:    fmt.Sprintf("Certificate is issued for %q", cert.Subject.CommonName),
			Recommendation: "Install a certificate that covers this hostname",
		})
	case info.DaysRemaining <= 30:
		info.Status = SSLStatusExpiring
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryWeb,
			Severity:       SeverityHigh,
			Title:          "SSL certificate expires soon",
			Description:    fmt.Sprintf("Certificate expires in %d days", info.DaysRemaining),
			Recommendation: "Renew the SSL certificate before it expires",
		})
	default:
		info.Status = SSLStatusValid
	}

	if state.Version < tls.VersionTLS12 {
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryWeb,
			Severity:       SeverityMedium,
			Title:          "Weak TLS protocol version negotiated",
			Description:    fmt.Sprintf("Server negotiated %s", info.Protocol),
			Recommendation: "Require TLS 1.2 or newer",
		})
	}

	result.Details = map[string]interface{}{
		"status":         string(info.Status),
		"subject":        info.Subject,
		"issuer":         info.Issuer,
		"not_after":      info.NotAfter.Format(time.RFC3339),
		"days_remaining": info.DaysRemaining,
		"protocol":       info.Protocol,
		"cipher_suite":   info.CipherSuite,
	}
	return result, info
}

// checkSensitivePaths probes well-known sensitive paths and flags any that
// respond with success.
func (e *Engine) checkSensitivePaths(ctx context.Context, baseURL string) CheckResult {
	result := CheckResult{Check: "sensitive_paths", Category: CategoryWeb}

	paths := e.cfg.SensitivePaths
	if len(paths) == 0 {
		paths = DefaultSensitivePaths
	}

	var exposed []string
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		resp, err := e.get(ctx, strings.TrimRight(baseURL, "/")+path)
		if err != nil {
			continue
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			exposed = append(exposed, path)
			result.Findings = append(result.Findings, Finding{
				Category:       CategoryWeb,
				Severity:       SeverityHigh,
				Title:          fmt.Sprintf("Sensitive path %s is accessible", path),
				Description:    fmt.Sprintf("Request to %s returned HTTP %d", path, resp.StatusCode),
				Recommendation: "Restrict access to administrative and configuration paths",
			})
		}
	}

	result.Details = map[string]interface{}{
		"probed":  len(paths),
		"exposed": exposed,
	}
	return result
}

// checkRobotsSitemap fetches robots.txt and sitemap.xml and records any
// disallowed paths as informational findings.
func (e *Engine) checkRobotsSitemap(ctx context.Context, baseURL string) CheckResult {
	result := CheckResult{Check: "robots_sitemap", Category: CategoryWeb}
	details := map[string]interface{}{}

	base := strings.TrimRight(baseURL, "/")

	if resp, err := e.get(ctx, base+"/robots.txt"); err == nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			details["robots_txt"] = true
			var disallowed []string
			for _, line := range strings.Split(string(body), "\n") {
				line = strings.TrimSpace(line)
				if strings.HasPrefix(strings.ToLower(line), "disallow:") {
					path := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
					if path != "" {
						disallowed = append(disallowed, path)
					}
				}
			}
			if len(disallowed) > 0 {
				details["disallowed_paths"] = disallowed
				result.Findings = append(result.Findings, Finding{
					Category:    CategoryWeb,
					Severity:    SeverityInfo,
					Title:       "robots.txt reveals hidden paths",
					Description: fmt.Sprintf("%d disallowed paths listed", len(disallowed)),
					Evidence:    strings.Join(disallowed, ", "),
				})
			}
		}
	}

	if resp, err := e.get(ctx, base+"/sitemap.xml"); err == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 256*1024))
		resp.Body.Close()
		details["sitemap_xml"] = resp.StatusCode == http.StatusOK
	}

	result.Details = details
	return result
}

// checkPageMetadata records the page title and any server/generator
// fingerprints from the front page.
func (e *Engine) checkPageMetadata(ctx context.Context, baseURL string) CheckResult {
	result := CheckResult{Check: "page_metadata", Category: CategoryWeb}

	resp, err := e.get(ctx, baseURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	details := map[string]interface{}{
		"http_status": resp.StatusCode,
	}

	for _, hdr := range []string{"Server", "X-Powered-By", "X-Generator"} {
		if value := resp.Header.Get(hdr); value != "" {
			details[strings.ToLower(strings.ReplaceAll(hdr, "-", "_"))] = value
			result.Findings = append(result.Findings, Finding{
				Category:       CategoryWeb,
				Severity:       SeverityLow,
				Title:          fmt.Sprintf("%s header discloses software details", hdr),
				Description:    fmt.Sprintf("%s: %s", hdr, value),
				Recommendation: "Suppress version banners in response headers",
			})
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if title := extractTitle(string(body)); title != "" {
		details["title"] = title
	}

	result.Details = details
	return result
}

// extractTitle pulls the text content of the first <title> element.
func extractTitle(html string) string {
	lower := strings.ToLower(html)
	start := strings.Index(lower, "<title")
	if start == -1 {
		return ""
	}
	gt := strings.Index(lower[start:], ">")
	if gt == -1 {
		return ""
	}
	contentStart := start + gt + 1
	end := strings.Index(lower[contentStart:], "</title>")
	if end == -1 {
		return ""
	}
	title := strings.TrimSpace(html[contentStart : contentStart+end])
	if len(title) > 200 {
		title = title[:200]
	}
	return title
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", v)
	}
}

// get issues a GET request with the engine's user agent and timeout.
func (e *Engine) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	ua := e.cfg.UserAgent
	if ua == "" {
		ua = "CybrScan/1.0"
	}
	req.Header.Set("User-Agent", ua)
	return e.httpClient.Do(req)
}
