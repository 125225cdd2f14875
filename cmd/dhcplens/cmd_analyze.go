package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/HerbHall/dhcplens/internal/classify"
	"github.com/HerbHall/dhcplens/internal/config"
	"github.com/HerbHall/dhcplens/internal/fingerbank"
	"github.com/HerbHall/dhcplens/internal/oui"
	"github.com/HerbHall/dhcplens/internal/parser"
	"github.com/HerbHall/dhcplens/pkg/models"
	"go.uber.org/zap"
)

// AnalyzeOutput is the JSON document the analyze command emits.
type AnalyzeOutput struct {
	Source  string                        `json:"source"`
	Format  string                        `json:"detected_format"`
	Stats   models.RunStats               `json:"stats"`
	Results []models.ClassificationResult `json:"results"`
}

func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	input := fs.String("input", "", "DHCP log file to analyze (\"-\" for stdin)")
	output := fs.String("output", "", "write JSON results to this file instead of stdout")
	_ = fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "analyze: -input is required")
		fs.Usage()
		os.Exit(2)
	}

	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Decode(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to decode configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Cancel external calls on Ctrl-C; local stages still finish.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var in io.Reader
	if *input == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(*input)
		if err != nil {
			logger.Fatal("failed to open input", zap.Error(err))
		}
		defer f.Close()
		in = f
	}

	p := parser.New(logger)
	entries, parseStats := p.ParseReader(in)
	if len(entries) == 0 {
		logger.Fatal("no recognizable DHCP log lines found",
			zap.String("input", *input),
			zap.Int("skipped_lines", parseStats.SkippedLines),
		)
	}

	engine, _ := buildEngine(cfg, logger)
	results, stats := engine.ClassifyAll(ctx, entries)
	stats.ParsedEntries = parseStats.ParsedEntries
	stats.SkippedLines = parseStats.SkippedLines

	doc := AnalyzeOutput{
		Source:  *input,
		Stats:   stats,
		Results: results,
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatal("failed to create output file", zap.Error(err))
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		logger.Fatal("failed to write results", zap.Error(err))
	}

	logger.Info("analysis complete",
		zap.Int("total_devices", stats.TotalDevices),
		zap.Int("vendor_resolved", stats.VendorResolved),
		zap.Int("unclassified", stats.Unclassified),
		zap.Int("skipped_lines", stats.SkippedLines),
	)
}

// buildEngine assembles the classification pipeline from configuration:
// vendor table, optional external client, and fusion weights. The
// returned client is nil when no API key is configured.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*classify.Engine, *fingerbank.Client) {
	var vendors oui.Lookup
	if cfg.OUI.DatabasePath != "" {
		table, err := oui.LoadCSV(cfg.OUI.DatabasePath, logger)
		if err != nil {
			logger.Fatal("failed to load OUI database", zap.Error(err))
		}
		vendors = table
	} else {
		vendors = oui.NewBuiltin(logger)
	}

	var external classify.ExternalClient
	client := fingerbank.NewClient(cfg.Fingerbank, logger)
	if client.Configured() {
		external = client
		logger.Info("external classification enabled",
			zap.String("component", "fingerbank"),
			zap.Int("requests_per_hour", cfg.Fingerbank.RequestsPerHour),
			zap.Int("requests_per_day", cfg.Fingerbank.RequestsPerDay),
		)
	} else {
		client = nil
		logger.Info("no API key configured, using local classification only",
			zap.String("component", "fingerbank"),
		)
	}

	return classify.NewEngine(vendors, external, weightsFromConfig(cfg.Classify.Weights), cfg.Classify.Workers, logger), client
}

func weightsFromConfig(w config.WeightsConfig) classify.Weights {
	return classify.Weights{
		VendorFound:        w.VendorFound,
		ExternalHigh:       w.ExternalHigh,
		ExternalMedium:     w.ExternalMedium,
		ExternalLow:        w.ExternalLow,
		HeuristicSpecific:  w.HeuristicSpecific,
		HeuristicGeneric:   w.HeuristicGeneric,
		HeuristicVendor:    w.HeuristicVendor,
		RuleShortcut:       w.RuleShortcut,
		RuleRefined:        w.RuleRefined,
		RuleCount:          w.RuleCount,
		HostnamePresent:    w.HostnamePresent,
		VendorClassPresent: w.VendorClassPresent,
	}
}
