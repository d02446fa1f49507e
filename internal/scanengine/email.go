package scanengine

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
)

// DefaultDKIMSelectors are queried when no selector list is configured.
var DefaultDKIMSelectors = []string{"default", "google", "mail", "dkim", "k1", "s1"}

// resolver abstracts DNS lookups so email checks can run against a fake in
// tests.
type resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// checkEmailSecurity examines the target domain's SPF, DKIM and DMARC
// records and its MX setup.
func (e *Engine) checkEmailSecurity(ctx context.Context, domain string) CheckResult {
	result := CheckResult{Check: "email_security", Category: CategoryEmail}
	details := map[string]interface{}{}

	// SPF lives in the domain's TXT records
	spf := ""
	if records, err := e.resolver.LookupTXT(ctx, domain); err == nil {
		for _, txt := range records {
			if strings.HasPrefix(strings.TrimSpace(txt), "v=spf1") {
				spf = txt
				break
			}
		}
	}
	details["spf_record"] = spf
	if spf == "" {
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryEmail,
			Severity:       SeverityHigh,
			Title:          "No SPF record found",
			Description:    "Anyone can send mail claiming to be from this domain",
			Recommendation: "Publish a v=spf1 TXT record listing authorized senders",
		})
	}

	// DKIM selectors are conventionally published under <selector>._domainkey
	selectors := e.cfg.DKIMSelectors
	if len(selectors) == 0 {
		selectors = DefaultDKIMSelectors
	}
	var foundSelectors []string
	for _, selector := range selectors {
		if ctx.Err() != nil {
			break
		}
		name := fmt.Sprintf("%s._domainkey.%s", selector, domain)
		records, err := e.resolver.LookupTXT(ctx, name)
		if err != nil {
			continue
		}
		for _, txt := range records {
			if strings.Contains(txt, "v=DKIM1") {
				foundSelectors = append(foundSelectors, selector)
				break
			}
		}
	}
	details["dkim_selectors"] = foundSelectors
	if len(foundSelectors) == 0 {
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryEmail,
			Severity:       SeverityMedium,
			Title:          "No DKIM record found on common selectors",
			Description:    fmt.Sprintf("Checked selectors: %s", strings.Join(selectors, ", ")),
			Recommendation: "Publish DKIM keys and sign outgoing mail",
		})
	}

	// DMARC lives at _dmarc.<domain>
	dmarc := ""
	if records, err := e.resolver.LookupTXT(ctx, "_dmarc."+domain); err == nil {
		for _, txt := range records {
			if strings.HasPrefix(strings.TrimSpace(txt), "v=DMARC1") {
				dmarc = txt
				break
			}
		}
	}
	details["dmarc_record"] = dmarc
	if dmarc == "" {
		result.Findings = append(result.Findings, Finding{
			Category:       CategoryEmail,
			Severity:       SeverityHigh,
			Title:          "No DMARC record found",
			Description:    "Receivers have no policy for handling spoofed mail",
			Recommendation: "Publish a v=DMARC1 TXT record at _dmarc." + domain,
		})
	}

	// MX records, sorted by priority
	if mxs, err := e.resolver.LookupMX(ctx, domain); err == nil && len(mxs) > 0 {
		sort.Slice(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
		hosts := make([]map[string]interface{}, 0, len(mxs))
		for _, mx := range mxs {
			hosts = append(hosts, map[string]interface{}{
				"host":     strings.TrimSuffix(mx.Host, "."),
				"priority": mx.Pref,
			})
		}
		details["mx_records"] = hosts
	}

	result.Details = details
	return result
}
