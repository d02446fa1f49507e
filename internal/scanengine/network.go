package scanengine

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"
)

// DefaultPorts are probed when no port list is configured.
var DefaultPorts = []int{21, 22, 23, 25, 53, 80, 110, 143, 443, 993, 995, 3306, 3389, 5432, 5900, 8080, 8443}

// serviceNames maps well-known ports to service labels.
var serviceNames = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	993:  "IMAPS",
	995:  "POP3S",
	3306: "MySQL",
	3389: "RDP",
	5432: "PostgreSQL",
	5900: "VNC",
	8080: "HTTP-Alt",
	8443: "HTTPS-Alt",
}

// riskyPort describes why an exposed port is a finding.
type riskyPort struct {
	severity       Severity
	description    string
	recommendation string
}

var riskyPorts = map[int]riskyPort{
	21: {
		severity:       SeverityHigh,
		description:    "FTP transfers files without encryption",
		recommendation: "Disable FTP and use SFTP instead",
	},
	23: {
		severity:       SeverityCritical,
		description:    "Telnet exposes unencrypted remote access",
		recommendation: "Disable Telnet and use SSH instead",
	},
	3306: {
		severity:       SeverityHigh,
		description:    "MySQL is reachable from the internet",
		recommendation: "Restrict database access to internal networks",
	},
	3389: {
		severity:       SeverityHigh,
		description:    "Remote Desktop is exposed to the internet",
		recommendation: "Restrict RDP access or require a VPN",
	},
	5432: {
		severity:       SeverityHigh,
		description:    "PostgreSQL is reachable from the internet",
		recommendation: "Restrict database access to internal networks",
	},
	5900: {
		severity:       SeverityHigh,
		description:    "VNC remote access is exposed",
		recommendation: "Tunnel VNC over SSH or a VPN",
	},
}

// serviceName returns the label for a port, or "Unknown".
func serviceName(port int) string {
	if name, ok := serviceNames[port]; ok {
		return name
	}
	return "Unknown"
}

// checkOpenPorts probes the configured ports with TCP connect attempts and
// flags risky exposed services. Ports are probed concurrently with a short
// per-port timeout.
func (e *Engine) checkOpenPorts(ctx context.Context, target string) CheckResult {
	result := CheckResult{Check: "open_ports", Category: CategoryNetwork}

	ports := e.cfg.Ports
	if len(ports) == 0 {
		ports = DefaultPorts
	}

	timeout := e.cfg.CheckTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	var (
		mu   sync.Mutex
		open []int
		wg   sync.WaitGroup
	)

	dialer := &net.Dialer{Timeout: timeout}
	for _, port := range ports {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			addr := net.JoinHostPort(target, fmt.Sprintf("%d", port))
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return
			}
			conn.Close()
			mu.Lock()
			open = append(open, port)
			mu.Unlock()
		}(port)
	}
	wg.Wait()

	sort.Ints(open)

	openDetails := make([]map[string]interface{}, 0, len(open))
	for _, port := range open {
		openDetails = append(openDetails, map[string]interface{}{
			"port":    port,
			"service": serviceName(port),
		})
		if risk, ok := riskyPorts[port]; ok {
			result.Findings = append(result.Findings, Finding{
				Category:       CategoryNetwork,
				Severity:       risk.severity,
				Title:          fmt.Sprintf("%s exposed on port %d", serviceName(port), port),
				Description:    risk.description,
				Recommendation: risk.recommendation,
				Evidence:       fmt.Sprintf("tcp connect to %s:%d succeeded", target, port),
			})
		}
	}

	result.Details = map[string]interface{}{
		"scanned":    len(ports),
		"open_ports": openDetails,
	}
	return result
}
