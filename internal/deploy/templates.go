package deploy

// Embedded widget templates. index.html goes through html/template; the
// CSS, JS and docs templates are plain text.

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{ .ScannerName }} - Security Scanner</title>
{{- if .FaviconURL }}
    <link rel="icon" type="image/png" sizes="32x32" href="{{ .FaviconURL }}">
    <link rel="icon" type="image/png" sizes="16x16" href="{{ .FaviconURL }}">
    <link rel="shortcut icon" href="{{ .FaviconURL }}">
{{- end }}
    <link rel="stylesheet" href="./scanner.css">
    <style>
        :root {
            --primary-color: {{ .PrimaryColor }};
            --secondary-color: {{ .SecondaryColor }};
            --button-color: {{ .ButtonColor }};
        }
    </style>
</head>
<body>
    <div class="scanner-container">
        <div class="scanner-header">
{{- if .LogoURL }}
            <img src="{{ .LogoURL }}" alt="{{ .BusinessName }} Logo" class="scanner-logo">
{{- end }}
            <h2 class="scanner-title">{{ .ScannerName }}</h2>
            <p class="scanner-description">Free security scan by {{ .BusinessName }}</p>
        </div>

        <div class="scanner-form-container">
            <form id="scannerForm" class="scanner-form">
                <div class="form-group">
                    <label for="target_url" class="form-label">Website URL to Scan</label>
                    <input type="url" id="target_url" name="target_url"
                           class="scanner-input" placeholder="https://example.com" required>
                    <div class="form-text">Enter your website URL for a security analysis</div>
                </div>

                <div class="form-group">
                    <label for="contact_email" class="form-label">Email Address</label>
                    <input type="email" id="contact_email" name="contact_email"
                           class="scanner-input" placeholder="you@company.com" required>
                    <div class="form-text">We'll send your security report to this email</div>
                </div>

                <div class="form-group">
                    <label for="contact_name" class="form-label">Name (Optional)</label>
                    <input type="text" id="contact_name" name="contact_name"
                           class="scanner-input" placeholder="Jane Doe">
                </div>

                <div class="form-group">
                    <label for="contact_company" class="form-label">Company (Optional)</label>
                    <input type="text" id="contact_company" name="contact_company"
                           class="scanner-input" placeholder="Company name">
                </div>

                <button type="submit" class="scanner-submit-btn">
                    <span class="btn-text">Start Free Security Scan</span>
                    <span class="btn-spinner" hidden></span>
                </button>
            </form>

            <div id="scanResults" class="scan-results" hidden></div>
            <div id="scanError" class="scan-error" hidden></div>
        </div>

        <div class="scanner-footer">
            <small>Powered by {{ .BusinessName }}</small>
        </div>
    </div>

    <script>
        window.SCANNER_CONFIG = {
            scannerUid: {{ .ScannerUID }},
            apiKey: {{ .APIKey }},
            apiBaseUrl: {{ .APIBaseURL }}
        };
    </script>
    <script src="./scanner.js"></script>
</body>
</html>
`

const cssTemplate = `/* {{ .ScannerName }} widget styles */
.scanner-container {
    max-width: 540px;
    margin: 0 auto;
    padding: 24px;
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    border: 1px solid #e3e3e3;
    border-radius: 8px;
    background: #ffffff;
}

.scanner-header {
    text-align: center;
    margin-bottom: 20px;
}

.scanner-logo {
    max-height: 56px;
    margin-bottom: 12px;
}

.scanner-title {
    color: {{ .PrimaryColor }};
    margin: 0 0 4px;
}

.scanner-description {
    color: {{ .SecondaryColor }};
    margin: 0;
}

.form-group {
    margin-bottom: 16px;
}

.form-label {
    display: block;
    margin-bottom: 4px;
    font-weight: 600;
}

.form-text {
    font-size: 12px;
    color: #6c757d;
}

.scanner-input {
    width: 100%;
    padding: 8px 12px;
    border: 1px solid #ced4da;
    border-radius: 4px;
    box-sizing: border-box;
}

.scanner-input:focus {
    outline: none;
    border-color: {{ .PrimaryColor }};
}

.scanner-submit-btn {
    width: 100%;
    padding: 10px 16px;
    background-color: {{ .ButtonColor }};
    color: #ffffff;
    border: none;
    border-radius: 4px;
    font-weight: 600;
    cursor: pointer;
}

.scanner-submit-btn:disabled {
    opacity: 0.7;
    cursor: wait;
}

.scan-results {
    margin-top: 20px;
    padding: 16px;
    border-radius: 4px;
    background: #f8f9fa;
}

.scan-error {
    margin-top: 20px;
    padding: 12px;
    border-radius: 4px;
    background: #f8d7da;
    color: #842029;
}

.score-badge {
    display: inline-block;
    padding: 4px 12px;
    border-radius: 12px;
    color: #ffffff;
    font-weight: 700;
}

.scanner-footer {
    margin-top: 16px;
    text-align: center;
    color: #6c757d;
}
{{ if .CSSOverride }}
/* Client overrides */
{{ .CSSOverride }}
{{ end -}}
`

const jsTemplate = `// {{ .ScannerName }} widget
(function () {
    var config = window.SCANNER_CONFIG;
    var form = document.getElementById('scannerForm');
    var submitBtn = form.querySelector('.scanner-submit-btn');
    var btnText = submitBtn.querySelector('.btn-text');
    var btnSpinner = submitBtn.querySelector('.btn-spinner');
    var resultsDiv = document.getElementById('scanResults');
    var errorDiv = document.getElementById('scanError');

    form.addEventListener('submit', function (e) {
        e.preventDefault();
        setLoading(true);
        hideMessages();

        var formData = new FormData(form);
        var payload = {
            target: formData.get('target_url'),
            email: formData.get('contact_email'),
            name: formData.get('contact_name') || '',
            company: formData.get('contact_company') || ''
        };

        fetch(config.apiBaseUrl + '/api/v1/scanner/' + config.scannerUid + '/scan', {
            method: 'POST',
            headers: {
                'Content-Type': 'application/json',
                'X-Api-Key': config.apiKey
            },
            body: JSON.stringify(payload)
        })
            .then(function (resp) {
                if (!resp.ok) {
                    throw new Error('scan request failed: ' + resp.status);
                }
                return resp.json();
            })
            .then(function (data) {
                pollStatus(data.data.scan_uid);
            })
            .catch(function (err) {
                setLoading(false);
                showError(err.message);
            });
    });

    function pollStatus(scanUid) {
        var url = config.apiBaseUrl + '/api/v1/scanner/' + config.scannerUid +
            '/scan/' + scanUid;
        var timer = setInterval(function () {
            fetch(url, { headers: { 'X-Api-Key': config.apiKey } })
                .then(function (resp) { return resp.json(); })
                .then(function (data) {
                    var scan = data.data;
                    if (scan.status === 'completed') {
                        clearInterval(timer);
                        setLoading(false);
                        showResults(scan);
                    } else if (scan.status === 'failed') {
                        clearInterval(timer);
                        setLoading(false);
                        showError(scan.error || 'Scan failed');
                    }
                })
                .catch(function () {
                    clearInterval(timer);
                    setLoading(false);
                    showError('Could not fetch scan status');
                });
        }, 2000);
    }

    function showResults(scan) {
        resultsDiv.innerHTML =
            '<h3>Security Score: <span class="score-badge" style="background:' +
            scan.risk_color + '">' + scan.security_score + ' / 100 (' +
            scan.grade + ')</span></h3>' +
            '<p>Risk level: ' + scan.risk_level + '</p>' +
            '<p>A detailed report has been sent to your email.</p>';
        resultsDiv.hidden = false;
    }

    function showError(message) {
        errorDiv.textContent = message;
        errorDiv.hidden = false;
    }

    function hideMessages() {
        resultsDiv.hidden = true;
        errorDiv.hidden = true;
    }

    function setLoading(loading) {
        submitBtn.disabled = loading;
        btnText.textContent = loading ? 'Scanning…' : 'Start Free Security Scan';
        btnSpinner.hidden = !loading;
    }
})();
`

const docsTemplate = `# {{ .ScannerName }} API

Widget API for {{ .BusinessName }}.

## Authentication

Every request requires the scanner API key in the ` + "`X-Api-Key`" + ` header:

    X-Api-Key: {{ .APIKey }}

## Submit a scan

    POST {{ .APIBaseURL }}/api/v1/scanner/{{ .ScannerUID }}/scan

Request body:

    {
      "target": "https://example.com",
      "email": "you@company.com",
      "name": "Jane Doe",
      "company": "Example Inc"
    }

Returns ` + "`202 Accepted`" + ` with the scan UID. Scans run asynchronously.

## Poll scan status

    GET {{ .APIBaseURL }}/api/v1/scanner/{{ .ScannerUID }}/scan/{scan_uid}

Returns the scan with its status, and once completed the security score,
risk level, grade and findings.

## Stream progress

    GET {{ .APIBaseURL }}/api/v1/scanner/{{ .ScannerUID }}/scan/{scan_uid}/events

Server-sent events with progress updates while the scan runs.

## Embed

    <iframe src="{{ .APIBaseURL }}/scanner/{{ .ScannerUID }}/embed"
            style="border:0;width:100%;height:640px"></iframe>

## Error codes

- 400 invalid request body or target
- 401 missing or invalid API key
- 403 client inactive or monthly scan limit reached
- 404 scanner not found
- 429 rate limit exceeded

## Support

Contact: {{ .ContactEmail }}
`
