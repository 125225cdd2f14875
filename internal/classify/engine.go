package classify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HerbHall/dhcplens/internal/fingerbank"
	"github.com/HerbHall/dhcplens/internal/oui"
	"github.com/HerbHall/dhcplens/pkg/models"
	"go.uber.org/zap"
)

// ExternalClient is the external classification dependency. Satisfied by
// *fingerbank.Client; tests substitute fakes.
type ExternalClient interface {
	Configured() bool
	Classify(ctx context.Context, req fingerbank.Request) (*fingerbank.Classification, error)
}

// Engine fuses the classification stages for a batch of log entries.
// Stages run per device in a fixed order: vendor lookup, external
// classification, fingerprint rules, heuristic fallback, then weighted
// confidence fusion. The engine never fails a batch because of a single
// device.
type Engine struct {
	vendors   oui.Lookup
	external  ExternalClient
	heuristic *Heuristic
	weights   Weights
	workers   int
	logger    *zap.Logger
}

// NewEngine wires the engine's collaborators. external may be nil when
// no API key is configured; workers <= 0 defaults to 4.
func NewEngine(vendors oui.Lookup, external ExternalClient, weights Weights, workers int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		vendors:   vendors,
		external:  external,
		heuristic: NewHeuristic(),
		weights:   weights,
		workers:   workers,
		logger:    logger.Named("classify"),
	}
}

// ClassifyAll groups entries by device and classifies each device on a
// bounded worker pool. Every valid device yields exactly one result;
// devices that panic mid-classification are dropped and counted, never
// fatal. Results are sorted by device ID. Cancelling ctx lets in-flight
// devices finish their local stages but stops new external calls.
func (e *Engine) ClassifyAll(ctx context.Context, entries []models.LogEntry) ([]models.ClassificationResult, models.RunStats) {
	groups, order := groupByDevice(entries)

	jobs := make(chan string)
	var (
		mu      sync.Mutex
		results = make([]models.ClassificationResult, 0, len(order))
		errored int
	)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for mac := range jobs {
				res, ok := e.classifyDeviceSafe(ctx, mac, groups[mac])
				mu.Lock()
				if ok {
					results = append(results, res)
				} else {
					errored++
				}
				mu.Unlock()
			}
		}()
	}
	for _, mac := range order {
		jobs <- mac
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].DeviceID < results[j].DeviceID })

	stats := models.RunStats{TotalDevices: len(results), DeviceErrors: errored}
	for i := range results {
		r := &results[i]
		if r.Vendor != "" {
			stats.VendorResolved++
		}
		switch r.Method {
		case models.MethodFingerbank:
			stats.ExternalSuccess++
		case models.MethodFingerprintRule:
			stats.RuleSuccess++
		case models.MethodHeuristic:
			stats.HeuristicSuccess++
		}
		if r.DeviceType == models.DeviceTypeUnknown {
			stats.Unclassified++
		}
	}
	return results, stats
}

// classifyDeviceSafe catches per-device panics so one malformed device
// cannot abort the batch.
func (e *Engine) classifyDeviceSafe(ctx context.Context, mac string, entries []models.LogEntry) (res models.ClassificationResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			deviceErrorsTotal.Inc()
			e.logger.Warn("device classification failed, dropping device",
				zap.String("device_id", mac),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	res = e.classifyDevice(ctx, mac, entries)
	devicesClassifiedTotal.WithLabelValues(string(res.Method)).Inc()
	return res, true
}

func (e *Engine) classifyDevice(ctx context.Context, mac string, entries []models.LogEntry) models.ClassificationResult {
	best := bestEntry(entries)

	result := models.ClassificationResult{
		DeviceID:         mac,
		AssignedAddress:  best.AssignedAddress,
		Hostname:         best.Hostname,
		VendorConfidence: models.ConfidenceUnknown,
		Method:           models.MethodUnknown,
		RawFingerprint:   best.Fingerprint,
		VendorClass:      best.VendorClass,
		ClassifiedAt:     time.Now().UTC(),
	}

	// Vendor stage. A miss is not an error. Only the OUI-resolved vendor
	// feeds the local classification stages; a manufacturer learned from
	// an unclassifying external response is display data, not a signal.
	var ouiVendor string
	if info, found := e.vendors.Lookup(mac); found {
		ouiVendor = info.Vendor
		result.Vendor = info.Vendor
		result.VendorConfidence = info.Confidence
	}

	classified := false
	var ruleBasis RuleBasis
	var heurBasis HeuristicBasis

	// External stage. Runs whenever a client is configured; failures and
	// unclassifying responses fall through to the local stages.
	if e.external != nil && e.external.Configured() && ctx.Err() == nil {
		cls, err := e.external.Classify(ctx, fingerbank.Request{
			MAC:             mac,
			DHCPFingerprint: best.Fingerprint,
			DHCPVendorClass: best.VendorClass,
			Hostname:        best.Hostname,
			ClientFQDN:      best.ClientFQDN,
		})
		switch {
		case err != nil:
			result.ErrorNote = err.Error()
		case cls.Classified():
			score := cls.Score
			result.ExternalScore = &score
			result.DeviceType = models.DeviceType(cls.DeviceType)
			result.DeviceName = cls.DeviceName
			result.OperatingSystem = cls.OperatingSystem
			result.Method = models.MethodFingerbank
			classified = true
		default:
			// Valid but unclassifying: keep the score and any vendor hint,
			// let later stages try.
			score := cls.Score
			result.ExternalScore = &score
			if result.Vendor == "" && cls.Manufacturer != "" {
				result.Vendor = cls.Manufacturer
				result.VendorConfidence = models.ConfidenceLow
			}
			result.Notes = append(result.Notes, "external response identified manufacturer only")
		}
	}

	// Fingerprint-rule stage.
	if !classified && best.HasFingerprint() {
		if rule, fired := ClassifyByFingerprint(best.Fingerprint, best.VendorClass, ouiVendor); fired {
			result.DeviceType = rule.DeviceType
			result.Method = models.MethodFingerprintRule
			ruleBasis = rule.Basis
			classified = true
		}
	}

	// Heuristic fallback, the terminal stage. Always returns something;
	// an empty device type with unknown confidence is a valid outcome.
	if !classified {
		heur := e.heuristic.Classify(best.Hostname, ouiVendor, best.VendorClass, best.Fingerprint)
		result.Notes = append(result.Notes, heur.Notes...)
		if heur.DeviceType != models.DeviceTypeUnknown {
			result.DeviceType = heur.DeviceType
			result.Method = models.MethodHeuristic
			heurBasis = heur.Basis
			classified = true
		}
		if result.OperatingSystem == "" {
			result.OperatingSystem = heur.OperatingSystem
		}
	}

	// A device we could not type but whose OUI resolved is reported as
	// vendor-only; a vendor learned from an unclassifying external
	// response does not count.
	if !classified && result.Vendor != "" && result.VendorConfidence == models.ConfidenceHigh {
		result.Method = models.MethodVendorOnly
	}

	externalScore := 0
	if result.ExternalScore != nil {
		externalScore = *result.ExternalScore
	}
	result.OverallConfidence = e.weights.Fuse(fusionSignals{
		vendorFound:   result.Vendor != "",
		method:        result.Method,
		externalScore: externalScore,
		ruleBasis:     ruleBasis,
		heurBasis:     heurBasis,
		hasHostname:   best.Hostname != "",
		hasVendorCls:  best.VendorClass != "",
	})
	// A classified device is never less certain than "low": some stage
	// produced a concrete type even if the weighted total is tiny.
	if classified && result.OverallConfidence == models.ConfidenceUnknown {
		result.OverallConfidence = models.ConfidenceLow
	}

	return result
}

// groupByDevice buckets entries by device ID, preserving first-seen
// order for deterministic scheduling.
func groupByDevice(entries []models.LogEntry) (map[string][]models.LogEntry, []string) {
	groups := make(map[string][]models.LogEntry)
	var order []string
	for _, entry := range entries {
		if entry.DeviceID == "" {
			continue
		}
		if _, seen := groups[entry.DeviceID]; !seen {
			order = append(order, entry.DeviceID)
		}
		groups[entry.DeviceID] = append(groups[entry.DeviceID], entry)
	}
	return groups, order
}

// bestEntry picks the most informative entry for a device: hostname +3,
// vendor class +2, fingerprint +2, ACK +1. Ties go to the latest
// observation, then first seen.
func bestEntry(entries []models.LogEntry) models.LogEntry {
	best := entries[0]
	bestScore := entryScore(best)
	for _, e := range entries[1:] {
		score := entryScore(e)
		if score > bestScore || (score == bestScore && e.ObservedAt.After(best.ObservedAt)) {
			best = e
			bestScore = score
		}
	}
	return best
}

func entryScore(e models.LogEntry) int {
	score := 0
	if e.Hostname != "" {
		score += 3
	}
	if e.VendorClass != "" {
		score += 2
	}
	if e.Fingerprint != "" {
		score += 2
	}
	if e.MessageType == models.MessageACK {
		score += 1
	}
	return score
}
