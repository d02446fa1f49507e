package scanengine

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/utils"
)

// Engine errors
var (
	// ErrQueueFull indicates the scan queue has no capacity left
	ErrQueueFull = errors.New("scan queue is full")

	// ErrEngineStopped indicates the engine no longer accepts scans
	ErrEngineStopped = errors.New("scan engine is stopped")
)

// Config holds the engine's tunables. Zero values fall back to defaults.
type Config struct {
	Workers        int
	QueueSize      int
	CheckTimeout   time.Duration
	ScanTimeout    time.Duration
	Ports          []int
	DKIMSelectors  []string
	SensitivePaths []string
	UserAgent      string

	// ProbesPerSecond caps outbound probes across all running scans
	ProbesPerSecond int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		QueueSize:       64,
		CheckTimeout:    5 * time.Second,
		ScanTimeout:     2 * time.Minute,
		UserAgent:       "CybrScan/1.0",
		ProbesPerSecond: 50,
	}
}

// Engine executes security scans asynchronously on a worker pool. Submitted
// scans are queued, picked up by a worker, fanned out into concurrent
// checks, scored and persisted. Progress events stream through the
// broadcaster while a scan runs.
type Engine struct {
	cfg         Config
	log         *logrus.Logger
	scans       repositories.ScanRepository
	leads       repositories.LeadRepository
	broadcaster Broadcaster

	httpClient *http.Client
	resolver   resolver
	lookupHost func(ctx context.Context, host string) ([]string, error)
	onComplete func(scan *models.Scan)
	probeGate  *utils.Throttle

	jobs     chan *models.Scan
	wg       sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopped  chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient overrides the HTTP client used by web checks.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithResolver overrides the DNS resolver used by email checks.
func WithResolver(r resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithHostLookup overrides target resolution.
func WithHostLookup(fn func(ctx context.Context, host string) ([]string, error)) Option {
	return func(e *Engine) {
		e.lookupHost = fn
	}
}

// WithCompletionHook registers a callback invoked after a scan completes
// and its results are persisted. It runs on the worker goroutine.
func WithCompletionHook(fn func(scan *models.Scan)) Option {
	return func(e *Engine) {
		e.onComplete = fn
	}
}

// New creates an engine. Start must be called before submitting scans.
func New(cfg Config, scans repositories.ScanRepository, leads repositories.LeadRepository, broadcaster Broadcaster, log *logrus.Logger, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = def.CheckTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = def.ScanTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.ProbesPerSecond <= 0 {
		cfg.ProbesPerSecond = def.ProbesPerSecond
	}
	if log == nil {
		log = logrus.New()
	}
	if broadcaster == nil {
		broadcaster = NewHub()
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:         cfg,
		log:         log,
		scans:       scans,
		leads:       leads,
		broadcaster: broadcaster,
		httpClient: &http.Client{
			Timeout: cfg.CheckTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		resolver:  net.DefaultResolver,
		probeGate: utils.NewThrottle(cfg.ProbesPerSecond, time.Second),
		jobs:      make(chan *models.Scan, cfg.QueueSize),
		baseCtx:   baseCtx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}
	e.lookupHost = func(ctx context.Context, host string) ([]string, error) {
		return net.DefaultResolver.LookupHost(ctx, host)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the worker goroutines.
func (e *Engine) Start() {
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	e.log.WithField("workers", e.cfg.Workers).Info("Scan engine started")
}

// Submit enqueues a scan for execution. The scan record must already be
// persisted with status queued.
func (e *Engine) Submit(scan *models.Scan) error {
	select {
	case <-e.stopped:
		return ErrEngineStopped
	default:
	}

	select {
	case e.jobs <- scan:
		e.log.WithFields(logrus.Fields{
			"scan_uid": scan.UID,
			"target":   scan.Target,
		}).Info("Scan queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting scans and drains in-flight work. When the
// context expires before the drain completes, running checks are cancelled
// and the remaining workers exit.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.stopOnce.Do(func() {
		close(e.stopped)
		close(e.jobs)
	})

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return ctx.Err()
	}
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for scan := range e.jobs {
		e.runScan(scan)
	}
}

// checkJob is a single check queued for concurrent execution within a scan.
type checkJob struct {
	name string
	run  func(ctx context.Context) CheckResult
}

func (e *Engine) runScan(scan *models.Scan) {
	ctx, cancel := context.WithTimeout(e.baseCtx, e.cfg.ScanTimeout)
	defer cancel()

	log := e.log.WithFields(logrus.Fields{
		"scan_uid": scan.UID,
		"target":   scan.Target,
	})

	start := time.Now()
	if err := e.scans.UpdateStatus(ctx, scan.UID, models.ScanStatusRunning, ""); err != nil {
		log.WithError(err).Error("Failed to mark scan running")
	}
	scan.Status = models.ScanStatusRunning
	e.publish(scan.UID, "starting", fmt.Sprintf("Scanning %s", scan.Target), 0, false)

	// A scan fails outright only when the target does not resolve.
	if _, err := e.lookupHost(ctx, scan.Target); err != nil {
		log.WithError(err).Warn("Target did not resolve")
		e.failScan(ctx, scan, fmt.Sprintf("target %s did not resolve", scan.Target), start)
		return
	}

	results := &Results{
		Target:    scan.Target,
		ScanTypes: scanTypesFor(scan.ScanType),
		StartedAt: start,
	}

	jobs := e.buildChecks(scan, results)
	e.executeChecks(ctx, scan.UID, jobs, results)

	results.CompletedAt = time.Now()
	e.finalize(results)

	payload, err := json.Marshal(results)
	if err != nil {
		log.WithError(err).Error("Failed to encode scan results")
		e.failScan(ctx, scan, "failed to encode results", start)
		return
	}

	now := time.Now()
	scan.Status = models.ScanStatusCompleted
	scan.SecurityScore = results.SecurityScore
	scan.RiskLevel = results.RiskLevel
	scan.RiskColor = results.RiskColor
	scan.Grade = results.Grade
	scan.VulnerabilitiesFound = results.VulnerabilityCount()
	scan.RecommendationsCount = len(results.Recommendations)
	scan.Results = string(payload)
	scan.DurationMs = time.Since(start).Milliseconds()
	scan.CompletedAt = &now

	if err := e.scans.Update(ctx, scan); err != nil {
		log.WithError(err).Error("Failed to persist scan results")
	}

	if scan.LeadEmail != "" && e.leads != nil {
		contact := models.Lead{
			Name:        scan.LeadName,
			Email:       scan.LeadEmail,
			Phone:       scan.LeadPhone,
			Company:     scan.LeadCompany,
			CompanySize: scan.CompanySize,
		}
		if _, err := e.leads.RecordScan(ctx, scan.ClientID, contact, results.SecurityScore, now); err != nil {
			log.WithError(err).Error("Failed to record lead")
		}
	}

	log.WithFields(logrus.Fields{
		"score":       results.SecurityScore,
		"risk_level":  results.RiskLevel,
		"duration_ms": scan.DurationMs,
	}).Info("Scan completed")

	e.broadcaster.Publish(ProgressEvent{
		ScanUID: scan.UID,
		Status:  string(models.ScanStatusCompleted),
		Message: fmt.Sprintf("Scan complete: score %d (%s)", results.SecurityScore, results.RiskLevel),
		Percent: 100,
		Done:    true,
	})

	if e.onComplete != nil {
		e.onComplete(scan)
	}
}

// buildChecks assembles the check jobs for the scan's type. The header
// score and TLS info land on the results struct; each is written by exactly
// one check and read only after the pool drains.
func (e *Engine) buildChecks(scan *models.Scan, results *Results) []checkJob {
	baseURL := "https://" + scan.Target
	var jobs []checkJob

	for _, category := range results.ScanTypes {
		switch Category(category) {
		case CategoryNetwork:
			jobs = append(jobs, checkJob{"open_ports", func(ctx context.Context) CheckResult {
				return e.checkOpenPorts(ctx, scan.Target)
			}})
		case CategoryWeb:
			jobs = append(jobs,
				checkJob{"security_headers", func(ctx context.Context) CheckResult {
					result, score := e.checkSecurityHeaders(ctx, baseURL)
					results.HeaderScore = score
					return result
				}},
				checkJob{"ssl_certificate", func(ctx context.Context) CheckResult {
					result, info := e.checkSSLCertificate(ctx, scan.Target)
					results.SSL = info
					return result
				}},
				checkJob{"sensitive_paths", func(ctx context.Context) CheckResult {
					return e.checkSensitivePaths(ctx, baseURL)
				}},
				checkJob{"robots_sitemap", func(ctx context.Context) CheckResult {
					return e.checkRobotsSitemap(ctx, baseURL)
				}},
				checkJob{"page_metadata", func(ctx context.Context) CheckResult {
					return e.checkPageMetadata(ctx, baseURL)
				}},
			)
		case CategoryEmail:
			jobs = append(jobs, checkJob{"email_security", func(ctx context.Context) CheckResult {
				return e.checkEmailSecurity(ctx, scan.Target)
			}})
		case CategorySystem:
			jobs = append(jobs, checkJob{"client_system", func(ctx context.Context) CheckResult {
				return e.checkClientSystem(scan.UserAgent)
			}})
		}
	}
	return jobs
}

// executeChecks fans the jobs out across a small worker pool with panic
// recovery per job, streaming progress as each check completes.
func (e *Engine) executeChecks(ctx context.Context, scanUID string, jobs []checkJob, results *Results) {
	if len(jobs) == 0 {
		return
	}

	workers := 4
	if len(jobs) < workers {
		workers = len(jobs)
	}

	jobCh := make(chan checkJob)
	resultCh := make(chan CheckResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				resultCh <- e.runCheck(ctx, j)
			}
		}()
	}

	go func() {
		for _, j := range jobs {
			jobCh <- j
		}
		close(jobCh)
		wg.Wait()
		close(resultCh)
	}()

	completed := 0
	for result := range resultCh {
		results.Checks = append(results.Checks, result)
		completed++
		e.publish(scanUID, result.Check,
			fmt.Sprintf("Completed check %s", result.Check),
			completed*100/len(jobs), false)
	}
}

// runCheck executes a single check, recovering from panics so one bad check
// cannot take down the worker.
func (e *Engine) runCheck(ctx context.Context, j checkJob) (result CheckResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"check": j.name,
				"panic": fmt.Sprintf("%v", r),
			}).Error("Check panicked")
			result = CheckResult{
				Check: j.name,
				Error: fmt.Sprintf("check panicked: %v", r),
			}
		}
		result.Duration = time.Since(start)
	}()

	if ctx.Err() != nil {
		return CheckResult{Check: j.name, Error: ctx.Err().Error()}
	}
	// Pace outbound probes so concurrent scans cannot flood a target
	if err := e.probeGate.Wait(ctx); err != nil {
		return CheckResult{Check: j.name, Error: err.Error()}
	}
	return j.run(ctx)
}

// finalize computes the score, risk mapping, component scores and
// recommendation list from the collected check results.
func (e *Engine) finalize(results *Results) {
	findings := results.Findings()

	deductions := Deductions(results.ScoredFindings(), results.SSL, results.HeaderScore)
	results.SecurityScore = clampScore(100 - deductions)
	results.RiskLevel, results.RiskColor = RiskLevel(results.SecurityScore)
	results.Grade = Grade(results.SecurityScore)

	results.ComponentScores = make(map[string]int, len(results.ScanTypes))
	for _, category := range results.ScanTypes {
		results.ComponentScores[category] = ComponentScore(Category(category), deductions)
	}

	// Recommendations ordered by severity, deduplicated
	seen := make(map[string]bool)
	for _, severity := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		for _, f := range findings {
			if f.Severity != severity || f.Recommendation == "" || seen[f.Recommendation] {
				continue
			}
			seen[f.Recommendation] = true
			results.Recommendations = append(results.Recommendations, f.Recommendation)
		}
	}
}

func (e *Engine) failScan(ctx context.Context, scan *models.Scan, reason string, start time.Time) {
	scan.Status = models.ScanStatusFailed
	scan.Error = reason
	scan.DurationMs = time.Since(start).Milliseconds()
	if err := e.scans.UpdateStatus(ctx, scan.UID, models.ScanStatusFailed, reason); err != nil {
		e.log.WithError(err).WithField("scan_uid", scan.UID).Error("Failed to mark scan failed")
	}
	e.broadcaster.Publish(ProgressEvent{
		ScanUID: scan.UID,
		Status:  string(models.ScanStatusFailed),
		Message: reason,
		Percent: 100,
		Done:    true,
	})
}

func (e *Engine) publish(scanUID, phase, message string, percent int, done bool) {
	e.broadcaster.Publish(ProgressEvent{
		ScanUID: scanUID,
		Phase:   phase,
		Message: message,
		Percent: percent,
		Status:  string(models.ScanStatusRunning),
		Done:    done,
	})
}

// scanTypesFor expands a scan type into the categories to run.
// "comprehensive" (or empty) runs everything.
func scanTypesFor(scanType string) []string {
	switch scanType {
	case "", "comprehensive":
		types := make([]string, 0, len(AllCategories))
		for _, c := range AllCategories {
			types = append(types, string(c))
		}
		return types
	default:
		return []string{scanType}
	}
}
