package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/HerbHall/dhcplens/internal/inventory"
	"github.com/HerbHall/dhcplens/internal/parser"
	"github.com/HerbHall/dhcplens/pkg/models"
	"go.uber.org/zap"
)

// maxLogBody caps the accepted request body for analysis.
const maxLogBody = 32 << 20 // 32 MiB

// AnalyzeResponse is the result of one analysis run.
type AnalyzeResponse struct {
	RunID   string                        `json:"run_id,omitempty"`
	Format  string                        `json:"detected_format"`
	Stats   models.RunStats               `json:"stats"`
	Results []models.ClassificationResult `json:"results"`
}

// handleAnalyze accepts a raw DHCP log in the request body, classifies
// every device in it, persists the run, and returns the results.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLogBody+1))
	if err != nil {
		BadRequest(w, "failed to read request body", r.URL.Path)
		return
	}
	if len(body) == 0 {
		BadRequest(w, "empty log body", r.URL.Path)
		return
	}
	if len(body) > maxLogBody {
		BadRequest(w, "log body exceeds 32 MiB limit", r.URL.Path)
		return
	}

	lines := strings.Split(string(body), "\n")
	entries, parseStats := s.parser.Parse(lines)
	if len(entries) == 0 {
		BadRequest(w, "no recognizable DHCP log lines found", r.URL.Path)
		return
	}

	results, stats := s.engine.ClassifyAll(r.Context(), entries)
	stats.ParsedEntries = parseStats.ParsedEntries
	stats.SkippedLines = parseStats.SkippedLines

	resp := AnalyzeResponse{
		Format:  s.parser.DetectFormat(sampleLines(lines, 50)),
		Stats:   stats,
		Results: results,
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}
	runID, err := s.store.SaveRun(r.Context(), source, stats, results)
	if err != nil {
		// The classification itself succeeded; report it with a note
		// rather than discarding the work.
		s.logger.Error("failed to persist run", zap.Error(err))
	} else {
		resp.RunID = runID
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListDevices returns the rolling device inventory.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.store.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("list devices", zap.Error(err))
		InternalError(w, "failed to list devices", r.URL.Path)
		return
	}
	if devices == nil {
		devices = []inventory.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns one device by MAC in any common notation.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("mac")
	mac, ok := parser.NormalizeMAC(raw)
	if !ok {
		BadRequest(w, "invalid MAC address", r.URL.Path)
		return
	}

	device, err := s.store.GetDevice(r.Context(), mac)
	if errors.Is(err, inventory.ErrNotFound) {
		NotFound(w, "device not found", r.URL.Path)
		return
	}
	if err != nil {
		s.logger.Error("get device", zap.Error(err), zap.String("mac", mac))
		InternalError(w, "failed to load device", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// handleListRuns returns recent analysis runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			BadRequest(w, "limit must be an integer between 1 and 1000", r.URL.Path)
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", zap.Error(err))
		InternalError(w, "failed to list runs", r.URL.Path)
		return
	}
	if runs == nil {
		runs = []inventory.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// RunDetailResponse is one run with its per-device results.
type RunDetailResponse struct {
	Run     inventory.Run                 `json:"run"`
	Results []models.ClassificationResult `json:"results"`
}

// handleGetRun returns one run's classification results.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, inventory.ErrNotFound) {
		NotFound(w, "run not found", r.URL.Path)
		return
	}
	if err != nil {
		s.logger.Error("get run", zap.Error(err), zap.String("run_id", id))
		InternalError(w, "failed to load run", r.URL.Path)
		return
	}

	results, err := s.store.RunResults(r.Context(), id)
	if err != nil {
		s.logger.Error("run results", zap.Error(err), zap.String("run_id", id))
		InternalError(w, "failed to load run results", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, RunDetailResponse{Run: *run, Results: results})
}

// StatsResponse aggregates inventory counts with the external API
// budget so operators can see remaining quota at a glance.
type StatsResponse struct {
	Inventory *inventory.Summary `json:"inventory"`
	External  *ExternalStats     `json:"external,omitempty"`
}

// ExternalStats reports the external classification client's counters
// and sliding-window usage.
type ExternalStats struct {
	Successful  int64 `json:"successful"`
	Failed      int64 `json:"failed"`
	RateLimited int64 `json:"rate_limited"`
	HourlyUsed  int   `json:"hourly_used"`
	HourlyLimit int   `json:"hourly_limit"`
	DailyUsed   int   `json:"daily_used"`
	DailyLimit  int   `json:"daily_limit"`
}

// handleStats returns inventory-wide aggregates.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats", zap.Error(err))
		InternalError(w, "failed to compute stats", r.URL.Path)
		return
	}

	resp := StatsResponse{Inventory: sum}
	if s.external.Configured() {
		cs := s.external.Stats()
		ws := s.external.RateLimitStatus()
		resp.External = &ExternalStats{
			Successful:  cs.Successful,
			Failed:      cs.Failed,
			RateLimited: cs.RateLimited,
			HourlyUsed:  ws.HourlyUsed,
			HourlyLimit: ws.HourlyLimit,
			DailyUsed:   ws.DailyUsed,
			DailyLimit:  ws.DailyLimit,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func sampleLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[:n]
}
