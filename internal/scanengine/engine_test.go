package scanengine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
)

// openTestDB opens an in-memory database pinned to one connection so the
// worker goroutines and the test share the same data.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Scan{}, &models.Lead{}))
	return db
}

func setupEngineTest(t *testing.T, opts ...Option) (*Engine, repositories.ScanRepository, *Hub) {
	t.Helper()

	db := openTestDB(t)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	scans := repositories.NewScanRepository(db)
	leads := repositories.NewLeadRepository(db)
	hub := NewHub()

	cfg := Config{
		Workers:      2,
		QueueSize:    8,
		CheckTimeout: time.Second,
		ScanTimeout:  10 * time.Second,
	}
	engine := New(cfg, scans, leads, hub, logger, opts...)
	return engine, scans, hub
}

func queuedScan(t *testing.T, scans repositories.ScanRepository, uid, scanType string) *models.Scan {
	t.Helper()
	scan := &models.Scan{
		ClientID:  1,
		UID:       uid,
		Target:    "example.com",
		ScanType:  scanType,
		Status:    models.ScanStatusQueued,
		LeadName:  "Jane Doe",
		LeadEmail: "jane@example.com",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
	}
	require.NoError(t, scans.Create(context.Background(), scan))
	return scan
}

func waitForStatus(t *testing.T, scans repositories.ScanRepository, uid string, want models.ScanStatus) *models.Scan {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		scan, err := scans.GetByUID(context.Background(), uid)
		require.NoError(t, err)
		if scan.Status == want {
			return scan
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("scan %s never reached status %s", uid, want)
	return nil
}

func TestEngine_SystemScanCompletes(t *testing.T) {
	engine, scans, hub := setupEngineTest(t, WithHostLookup(
		func(ctx context.Context, host string) ([]string, error) {
			return []string{"93.184.216.34"}, nil
		},
	))
	engine.Start()
	defer engine.Shutdown(context.Background())

	scan := queuedScan(t, scans, "scan_0123456789ab", "system")

	events, unsubscribe := hub.Subscribe(scan.UID)
	defer unsubscribe()

	require.NoError(t, engine.Submit(scan))

	done := waitForStatus(t, scans, scan.UID, models.ScanStatusCompleted)
	assert.NotNil(t, done.CompletedAt)
	assert.NotEmpty(t, done.Grade)
	assert.NotEmpty(t, done.RiskLevel)
	assert.NotEmpty(t, done.RiskColor)

	var results Results
	require.NoError(t, json.Unmarshal([]byte(done.Results), &results))
	assert.Equal(t, []string{"system"}, results.ScanTypes)
	require.Len(t, results.Checks, 1)
	assert.Equal(t, "client_system", results.Checks[0].Check)
	assert.Contains(t, results.ComponentScores, "system")

	// A terminal event must have been broadcast
	sawDone := false
	timeout := time.After(2 * time.Second)
	for !sawDone {
		select {
		case ev := <-events:
			if ev.Done {
				sawDone = true
				assert.Equal(t, string(models.ScanStatusCompleted), ev.Status)
				assert.Equal(t, 100, ev.Percent)
			}
		case <-timeout:
			t.Fatal("no terminal progress event received")
		}
	}
}

func TestEngine_UnresolvableTargetFails(t *testing.T) {
	engine, scans, _ := setupEngineTest(t, WithHostLookup(
		func(ctx context.Context, host string) ([]string, error) {
			return nil, assert.AnError
		},
	))
	engine.Start()
	defer engine.Shutdown(context.Background())

	scan := queuedScan(t, scans, "scan_badbadbadbad", "system")
	require.NoError(t, engine.Submit(scan))

	failed := waitForStatus(t, scans, scan.UID, models.ScanStatusFailed)
	assert.Contains(t, failed.Error, "did not resolve")
}

func TestEngine_RecordsLead(t *testing.T) {
	db := openTestDB(t)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	scans := repositories.NewScanRepository(db)
	leads := repositories.NewLeadRepository(db)

	engine := New(Config{Workers: 1, QueueSize: 2}, scans, leads, NewHub(), logger,
		WithHostLookup(func(ctx context.Context, host string) ([]string, error) {
			return []string{"93.184.216.34"}, nil
		}),
	)
	engine.Start()
	defer engine.Shutdown(context.Background())

	scan := queuedScan(t, scans, "scan_aaaabbbbcccc", "system")
	require.NoError(t, engine.Submit(scan))
	waitForStatus(t, scans, scan.UID, models.ScanStatusCompleted)

	lead, err := leads.GetByEmail(context.Background(), 1, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, 1, lead.TotalScans)
}

func TestEngine_QueueFull(t *testing.T) {
	engine, scans, _ := setupEngineTest(t)
	// Not started: nothing drains the queue
	engine.cfg.QueueSize = 1
	engine.jobs = make(chan *models.Scan, 1)

	first := queuedScan(t, scans, "scan_111111111111", "system")
	second := queuedScan(t, scans, "scan_222222222222", "system")

	require.NoError(t, engine.Submit(first))
	assert.ErrorIs(t, engine.Submit(second), ErrQueueFull)
}

func TestEngine_SubmitAfterShutdown(t *testing.T) {
	engine, scans, _ := setupEngineTest(t)
	engine.Start()
	require.NoError(t, engine.Shutdown(context.Background()))

	scan := queuedScan(t, scans, "scan_333333333333", "system")
	assert.ErrorIs(t, engine.Submit(scan), ErrEngineStopped)
}

func TestEngine_ProbeRateDefaults(t *testing.T) {
	assert.Greater(t, DefaultConfig().ProbesPerSecond, 0)

	// Zero falls back to the default so the probe gate always exists
	engine := New(Config{Workers: 1, QueueSize: 1}, nil, nil, NewHub(), nil)
	assert.Equal(t, DefaultConfig().ProbesPerSecond, engine.cfg.ProbesPerSecond)
	assert.NotNil(t, engine.probeGate)
}

func TestScanTypesFor(t *testing.T) {
	assert.Equal(t, []string{"network", "web", "email", "system"}, scanTypesFor("comprehensive"))
	assert.Equal(t, []string{"network", "web", "email", "system"}, scanTypesFor(""))
	assert.Equal(t, []string{"web"}, scanTypesFor("web"))
}

func TestHub_PublishAndSubscribe(t *testing.T) {
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe("scan_abc")
	ch2, cancel2 := hub.Subscribe("scan_abc")
	other, cancelOther := hub.Subscribe("scan_xyz")
	defer cancelOther()

	assert.Equal(t, 2, hub.SubscriberCount("scan_abc"))

	hub.Publish(ProgressEvent{ScanUID: "scan_abc", Message: "hello", Percent: 50})

	for _, ch := range []<-chan ProgressEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "hello", ev.Message)
			assert.Equal(t, 50, ev.Percent)
			assert.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}

	select {
	case <-other:
		t.Fatal("unrelated subscriber received event")
	default:
	}

	cancel1()
	cancel2()
	assert.Equal(t, 0, hub.SubscriberCount("scan_abc"))

	// Publishing with no subscribers must not panic
	hub.Publish(ProgressEvent{ScanUID: "scan_abc", Message: "late"})
}
