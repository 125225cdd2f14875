// Package oui resolves device manufacturers from MAC address prefixes
// (Organizationally Unique Identifiers). A Table is an immutable prefix
// map built either from the embedded builtin set or from a CSV snapshot
// of the IEEE registry; lookups are read-only and safe for concurrent use.
package oui

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/HerbHall/dhcplens/pkg/models"
	"go.uber.org/zap"
)

// VendorInfo is the outcome of one vendor lookup.
type VendorInfo struct {
	Vendor     string            `json:"vendor"`
	VendorFull string            `json:"vendor_full,omitempty"`
	Confidence models.Confidence `json:"confidence"`
}

// Lookup is the read side of a vendor table.
type Lookup interface {
	Lookup(mac string) (VendorInfo, bool)
}

// Table maps normalized OUI prefixes (aa:bb:cc) to vendor names. The map
// is never mutated after construction.
type Table struct {
	entries map[string]VendorInfo
	logger  *zap.Logger

	lookups int64
	hits    int64
}

// NewBuiltin returns a Table backed by the embedded fallback registry.
// It covers the common consumer vendors and is meant for offline use or
// as a fallback when no CSV snapshot is available.
func NewBuiltin(logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := make(map[string]VendorInfo, len(builtinVendors))
	for prefix, vendor := range builtinVendors {
		entries[prefix] = VendorInfo{
			Vendor:     vendor,
			VendorFull: vendor,
			Confidence: models.ConfidenceHigh,
		}
	}
	return &Table{entries: entries, logger: logger}
}

// LoadCSV builds a Table from a registry snapshot with an
// oui,vendor[,vendor_full] header row. Rows with malformed prefixes are
// skipped. The builtin entries backfill any prefix the file does not cover.
func LoadCSV(path string, logger *zap.Logger) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open oui database: %w", err)
	}
	defer f.Close()

	t, err := readCSV(f, logger)
	if err != nil {
		return nil, fmt.Errorf("parse oui database %s: %w", path, err)
	}
	return t, nil
}

func readCSV(r io.Reader, logger *zap.Logger) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	ouiCol, ok := col["oui"]
	if !ok {
		return nil, fmt.Errorf("missing oui column")
	}
	vendorCol, ok := col["vendor"]
	if !ok {
		return nil, fmt.Errorf("missing vendor column")
	}
	fullCol, hasFull := col["vendor_full"]

	entries := make(map[string]VendorInfo)
	skipped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if ouiCol >= len(row) || vendorCol >= len(row) {
			skipped++
			continue
		}

		prefix, ok := normalizePrefix(row[ouiCol])
		if !ok {
			skipped++
			continue
		}
		info := VendorInfo{
			Vendor:     strings.TrimSpace(row[vendorCol]),
			Confidence: models.ConfidenceHigh,
		}
		if info.Vendor == "" {
			skipped++
			continue
		}
		info.VendorFull = info.Vendor
		if hasFull && fullCol < len(row) && strings.TrimSpace(row[fullCol]) != "" {
			info.VendorFull = strings.TrimSpace(row[fullCol])
		}
		entries[prefix] = info
	}

	for prefix, vendor := range builtinVendors {
		if _, ok := entries[prefix]; !ok {
			entries[prefix] = VendorInfo{Vendor: vendor, VendorFull: vendor, Confidence: models.ConfidenceHigh}
		}
	}

	logger.Info("oui database loaded",
		zap.Int("entries", len(entries)),
		zap.Int("skipped_rows", skipped),
	)
	return &Table{entries: entries, logger: logger}, nil
}

// Lookup resolves the vendor for a MAC address in any common notation.
// A miss returns ok=false with Vendor "Unknown" and unknown confidence,
// never an error.
func (t *Table) Lookup(mac string) (VendorInfo, bool) {
	atomic.AddInt64(&t.lookups, 1)

	prefix, ok := normalizePrefix(mac)
	if !ok {
		return unknownVendor(), false
	}
	info, ok := t.entries[prefix]
	if !ok {
		return unknownVendor(), false
	}
	atomic.AddInt64(&t.hits, 1)
	return info, true
}

// Size reports the number of prefixes in the table.
func (t *Table) Size() int { return len(t.entries) }

// Stats reports lookup counters since construction.
func (t *Table) Stats() (lookups, hits int64) {
	return atomic.LoadInt64(&t.lookups), atomic.LoadInt64(&t.hits)
}

func unknownVendor() VendorInfo {
	return VendorInfo{Vendor: "Unknown", VendorFull: "Unknown Vendor", Confidence: models.ConfidenceUnknown}
}

// normalizePrefix reduces any MAC or OUI notation to the canonical
// lowercase aa:bb:cc key.
func normalizePrefix(raw string) (string, bool) {
	var hexDigits [6]byte
	n := 0
	for i := 0; i < len(raw) && n < 6; i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
			c += 'a' - 'A'
		case c == ':' || c == '-' || c == '.':
			continue
		default:
			return "", false
		}
		hexDigits[n] = c
		n++
	}
	if n < 6 {
		return "", false
	}
	return string([]byte{
		hexDigits[0], hexDigits[1], ':',
		hexDigits[2], hexDigits[3], ':',
		hexDigits[4], hexDigits[5],
	}), true
}
