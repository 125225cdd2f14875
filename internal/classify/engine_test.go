package classify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HerbHall/dhcplens/internal/fingerbank"
	"github.com/HerbHall/dhcplens/internal/oui"
	"github.com/HerbHall/dhcplens/pkg/models"
)

// fakeExternal scripts the external stage for tests.
type fakeExternal struct {
	configured bool
	calls      int64
	classify   func(req fingerbank.Request) (*fingerbank.Classification, error)
}

func (f *fakeExternal) Configured() bool { return f.configured }

func (f *fakeExternal) Classify(_ context.Context, req fingerbank.Request) (*fingerbank.Classification, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.classify(req)
}

// panickyLookup panics for one MAC to exercise per-device recovery.
type panickyLookup struct {
	inner  oui.Lookup
	badMAC string
}

func (p *panickyLookup) Lookup(mac string) (oui.VendorInfo, bool) {
	if mac == p.badMAC {
		panic("lookup corrupted")
	}
	return p.inner.Lookup(mac)
}

func entry(mac, hostname, vendorClass, fingerprint string, mt models.MessageType) models.LogEntry {
	return models.LogEntry{
		DeviceID:    mac,
		Hostname:    hostname,
		VendorClass: vendorClass,
		Fingerprint: fingerprint,
		MessageType: mt,
	}
}

func newTestEngine(external ExternalClient) *Engine {
	return NewEngine(oui.NewBuiltin(nil), external, DefaultWeights(), 2, nil)
}

func TestClassifyAll_completenessAndOrder(t *testing.T) {
	e := newTestEngine(nil)
	entries := []models.LogEntry{
		entry("b8:27:eb:00:00:01", "raspberrypi", "", "", models.MessageACK),
		entry("2c:f0:5d:00:00:02", "Johns-iPhone", "", "", models.MessageACK),
		entry("b8:27:eb:00:00:01", "", "", "", models.MessageRequest),
		entry("ff:ff:00:00:00:03", "", "", "", models.MessageACK),
	}

	results, stats := e.ClassifyAll(context.Background(), entries)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 (one per device)", len(results))
	}
	if stats.TotalDevices != 3 {
		t.Errorf("TotalDevices = %d", stats.TotalDevices)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].DeviceID > results[i].DeviceID {
			t.Fatalf("results not sorted by device ID: %q > %q", results[i-1].DeviceID, results[i].DeviceID)
		}
	}
	if stats.VendorResolved != 2 {
		t.Errorf("VendorResolved = %d, want 2", stats.VendorResolved)
	}
}

func TestClassifyDevice_fingerprintRuleStage(t *testing.T) {
	e := newTestEngine(nil)
	entries := []models.LogEntry{
		entry("ff:ff:00:00:00:01", "", "", "1,3,6,15", models.MessageACK),
	}

	results, stats := e.ClassifyAll(context.Background(), entries)
	r := results[0]
	if r.Method != models.MethodFingerprintRule {
		t.Errorf("Method = %q", r.Method)
	}
	if r.DeviceType != models.DeviceTypeSmartDevice {
		t.Errorf("DeviceType = %q", r.DeviceType)
	}
	if r.OverallConfidence != models.ConfidenceLow {
		t.Errorf("OverallConfidence = %q, want low", r.OverallConfidence)
	}
	if stats.RuleSuccess != 1 {
		t.Errorf("RuleSuccess = %d", stats.RuleSuccess)
	}
}

func TestClassifyDevice_externalClassifies(t *testing.T) {
	ext := &fakeExternal{
		configured: true,
		classify: func(req fingerbank.Request) (*fingerbank.Classification, error) {
			return &fingerbank.Classification{
				DeviceName:      "Samsung Android",
				DeviceType:      "Phone, Tablet or Wearable",
				OperatingSystem: "Android",
				Score:           85,
			}, nil
		},
	}
	e := newTestEngine(ext)

	// Hostname suggests a printer; the external result must not be
	// overwritten by later stages.
	entries := []models.LogEntry{
		entry("ff:ff:00:00:00:01", "hallway-printer", "android-dhcp-11", "1,3,6,15,26,28,51,58,59,43", models.MessageACK),
	}
	results, stats := e.ClassifyAll(context.Background(), entries)
	r := results[0]

	if r.Method != models.MethodFingerbank {
		t.Errorf("Method = %q", r.Method)
	}
	if r.DeviceType != "Phone, Tablet or Wearable" {
		t.Errorf("DeviceType = %q (later stage overwrote external result?)", r.DeviceType)
	}
	if r.ExternalScore == nil || *r.ExternalScore != 85 {
		t.Errorf("ExternalScore = %v", r.ExternalScore)
	}
	// vendor miss (+0), external >=80 (+60), hostname (+10), vendor class
	// (+10) = 80 -> high.
	if r.OverallConfidence != models.ConfidenceHigh {
		t.Errorf("OverallConfidence = %q, want high", r.OverallConfidence)
	}
	if stats.ExternalSuccess != 1 {
		t.Errorf("ExternalSuccess = %d", stats.ExternalSuccess)
	}
}

func TestClassifyDevice_hardwareManufacturerGap(t *testing.T) {
	ext := &fakeExternal{
		configured: true,
		classify: func(req fingerbank.Request) (*fingerbank.Classification, error) {
			return &fingerbank.Classification{
				Score:        29,
				Manufacturer: "Zyxel Communications Corporation",
				Hierarchy:    []string{"Hardware Manufacturer", "Zyxel Communications Corporation"},
			}, nil
		},
	}
	e := newTestEngine(ext)

	// No hostname, no fingerprint, OUI miss: every local stage comes up
	// empty too.
	entries := []models.LogEntry{
		entry("ff:ff:00:00:00:02", "", "", "", models.MessageACK),
	}
	results, stats := e.ClassifyAll(context.Background(), entries)
	r := results[0]

	if r.Vendor != "Zyxel Communications Corporation" {
		t.Errorf("Vendor = %q", r.Vendor)
	}
	if r.DeviceType != models.DeviceTypeUnknown {
		t.Errorf("DeviceType = %q, want empty", r.DeviceType)
	}
	if r.Method != models.MethodUnknown {
		t.Errorf("Method = %q, want unknown", r.Method)
	}
	if r.ExternalScore == nil || *r.ExternalScore != 29 {
		t.Errorf("ExternalScore = %v", r.ExternalScore)
	}
	if stats.Unclassified != 1 {
		t.Errorf("Unclassified = %d", stats.Unclassified)
	}
}

func TestClassifyDevice_rateLimitFallsThrough(t *testing.T) {
	ext := &fakeExternal{
		configured: true,
		classify: func(req fingerbank.Request) (*fingerbank.Classification, error) {
			return nil, fingerbank.ErrRateLimited
		},
	}
	e := newTestEngine(ext)

	entries := []models.LogEntry{
		entry("ff:ff:00:00:00:03", "Johns-iPhone", "", "", models.MessageACK),
	}
	results, _ := e.ClassifyAll(context.Background(), entries)
	r := results[0]

	if r.ErrorNote == "" {
		t.Error("expected rate-limit error note")
	}
	if r.Method != models.MethodHeuristic || r.DeviceType != models.DeviceTypePhone {
		t.Errorf("local fallback did not classify: method=%q type=%q", r.Method, r.DeviceType)
	}
}

func TestClassifyAll_cancelStopsExternalCalls(t *testing.T) {
	ext := &fakeExternal{
		configured: true,
		classify: func(req fingerbank.Request) (*fingerbank.Classification, error) {
			return &fingerbank.Classification{DeviceType: "Phone", Score: 90}, nil
		},
	}
	e := newTestEngine(ext)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := []models.LogEntry{
		entry("ff:ff:00:00:00:04", "galaxy-s21", "", "", models.MessageACK),
	}
	results, _ := e.ClassifyAll(ctx, entries)

	if atomic.LoadInt64(&ext.calls) != 0 {
		t.Errorf("external called %d times after cancellation", ext.calls)
	}
	// Local stages still ran.
	if len(results) != 1 || results[0].DeviceType != models.DeviceTypePhone {
		t.Errorf("local classification missing: %+v", results)
	}
}

func TestClassifyAll_panicDropsOnlyThatDevice(t *testing.T) {
	vendors := &panickyLookup{inner: oui.NewBuiltin(nil), badMAC: "ff:ff:00:00:00:05"}
	e := NewEngine(vendors, nil, DefaultWeights(), 2, nil)

	entries := []models.LogEntry{
		entry("ff:ff:00:00:00:05", "galaxy-s21", "", "", models.MessageACK),
		entry("2c:f0:5d:00:00:06", "Johns-iPhone", "", "", models.MessageACK),
	}
	results, stats := e.ClassifyAll(context.Background(), entries)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].DeviceID != "2c:f0:5d:00:00:06" {
		t.Errorf("surviving device = %q", results[0].DeviceID)
	}
	if stats.DeviceErrors != 1 {
		t.Errorf("DeviceErrors = %d, want 1", stats.DeviceErrors)
	}
}

func TestBestEntry(t *testing.T) {
	rich := entry("aa:bb:cc:dd:ee:ff", "myphone", "android-dhcp-11", "", models.MessageRequest)
	bare := entry("aa:bb:cc:dd:ee:ff", "", "", "", models.MessageACK)

	if got := bestEntry([]models.LogEntry{bare, rich}); got.Hostname != "myphone" {
		t.Errorf("bestEntry picked bare entry: %+v", got)
	}

	// Ties break toward the latest observation.
	early := entry("aa:bb:cc:dd:ee:ff", "", "", "", models.MessageACK)
	early.ObservedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := entry("aa:bb:cc:dd:ee:ff", "", "", "", models.MessageACK)
	late.ObservedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	late.AssignedAddress = "10.0.0.9"

	if got := bestEntry([]models.LogEntry{early, late}); got.AssignedAddress != "10.0.0.9" {
		t.Errorf("tie should go to latest entry, got %+v", got)
	}
}

func TestClassifyDevice_vendorInference(t *testing.T) {
	e := newTestEngine(nil)

	entries := []models.LogEntry{
		entry("50:c7:bf:00:00:07", "", "", "", models.MessageACK),
	}
	results, _ := e.ClassifyAll(context.Background(), entries)
	r := results[0]

	// ARRIS resolves via OUI and the heuristic vendor table types it as
	// network gear.
	if r.Vendor != "ARRIS Group, Inc." {
		t.Errorf("Vendor = %q", r.Vendor)
	}
	if r.DeviceType != models.DeviceTypeNetwork || r.Method != models.MethodHeuristic {
		t.Errorf("type=%q method=%q", r.DeviceType, r.Method)
	}
}
