package oui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HerbHall/dhcplens/pkg/models"
)

func TestBuiltinLookup(t *testing.T) {
	table := NewBuiltin(nil)

	tests := []struct {
		mac    string
		vendor string
		hit    bool
	}{
		{"2c:f0:5d:12:34:56", "Apple, Inc.", true},
		{"2C-F0-5D-12-34-56", "Apple, Inc.", true},
		{"b827eb112233", "Raspberry Pi Foundation", true},
		{"04:a1:51:33:44:55", "Nintendo Co., Ltd.", true},
		{"8c:85:90:77:88:99", "Amazon Technologies Inc.", true},
		{"aa:bb:cc:dd:ee:ff", "Unknown", false},
	}
	for _, tt := range tests {
		info, ok := table.Lookup(tt.mac)
		if ok != tt.hit {
			t.Errorf("Lookup(%q) hit = %v, want %v", tt.mac, ok, tt.hit)
		}
		if info.Vendor != tt.vendor {
			t.Errorf("Lookup(%q) vendor = %q, want %q", tt.mac, info.Vendor, tt.vendor)
		}
		wantConf := models.ConfidenceHigh
		if !tt.hit {
			wantConf = models.ConfidenceUnknown
		}
		if info.Confidence != wantConf {
			t.Errorf("Lookup(%q) confidence = %q, want %q", tt.mac, info.Confidence, wantConf)
		}
	}
}

func TestLookup_invalidInput(t *testing.T) {
	table := NewBuiltin(nil)
	for _, mac := range []string{"", "zz:zz:zz:00:00:00", "aa:bb"} {
		if _, ok := table.Lookup(mac); ok {
			t.Errorf("Lookup(%q) unexpectedly hit", mac)
		}
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oui.csv")
	content := "oui,vendor,vendor_full\n" +
		"AA:11:22,Acme,Acme Widget Corporation\n" +
		"bb-33-44,Beta Networks,\n" +
		"bogus,Broken Row,\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	table, err := LoadCSV(path, nil)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	info, ok := table.Lookup("aa:11:22:00:00:01")
	if !ok || info.Vendor != "Acme" || info.VendorFull != "Acme Widget Corporation" {
		t.Errorf("csv entry lookup = %+v (ok=%v)", info, ok)
	}
	if info, ok := table.Lookup("bb:33:44:99:99:99"); !ok || info.VendorFull != "Beta Networks" {
		t.Errorf("vendor_full should fall back to vendor, got %+v", info)
	}

	// Builtin entries backfill the CSV.
	if _, ok := table.Lookup("b8:27:eb:00:00:00"); !ok {
		t.Error("builtin backfill missing")
	}
}

func TestLoadCSV_errors(t *testing.T) {
	if _, err := LoadCSV("/nonexistent/oui.csv", nil); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("prefix,name\naa:11:22,Acme\n"), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, err := LoadCSV(path, nil); err == nil {
		t.Error("expected error for missing oui column")
	}
}

func TestStats(t *testing.T) {
	table := NewBuiltin(nil)
	table.Lookup("2c:f0:5d:00:00:00")
	table.Lookup("ff:ff:ff:00:00:00")

	lookups, hits := table.Stats()
	if lookups != 2 || hits != 1 {
		t.Errorf("Stats = (%d, %d), want (2, 1)", lookups, hits)
	}
	if table.Size() == 0 {
		t.Error("builtin table is empty")
	}
}
