package parser

import (
	"strings"
	"testing"

	"github.com/HerbHall/dhcplens/pkg/models"
)

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"AA-BB-CC-DD-EE-FF", "aa:bb:cc:dd:ee:ff", true},
		{"aabbccddeeff", "aa:bb:cc:dd:ee:ff", true},
		{"Aa:Bb:Cc:Dd:Ee:Ff", "aa:bb:cc:dd:ee:ff", true},
		{"aa.bb.cc.dd.ee.ff", "aa:bb:cc:dd:ee:ff", true},
		{"aa:bb:cc:dd:ee", "", false},
		{"aa:bb:cc:dd:ee:ff:00", "", false},
		{"zz:bb:cc:dd:ee:ff", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeMAC(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeMAC(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParse_ISCFormat(t *testing.T) {
	p := New(nil)
	entries, stats := p.Parse([]string{
		"DHCPACK on 192.168.1.100 to aa:bb:cc:dd:ee:ff (myphone) via eth0",
	})
	if stats.ParsedEntries != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d (stats %+v)", len(entries), stats)
	}

	e := entries[0]
	if e.DeviceID != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("DeviceID = %q", e.DeviceID)
	}
	if e.AssignedAddress != "192.168.1.100" {
		t.Errorf("AssignedAddress = %q", e.AssignedAddress)
	}
	if e.Hostname != "myphone" {
		t.Errorf("Hostname = %q", e.Hostname)
	}
	if e.MessageType != models.MessageACK {
		t.Errorf("MessageType = %q", e.MessageType)
	}
}

func TestParse_ISCWithSyslogPrefix(t *testing.T) {
	p := New(nil)
	entries, _ := p.Parse([]string{
		"Dec 25 14:30:45 router dhcpd[1234]: DHCPACK on 192.168.1.100 to aa:bb:cc:dd:ee:ff (MyLaptop)",
	})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ObservedAt.IsZero() {
		t.Error("expected timestamp to be parsed")
	}
	if entries[0].ObservedAt.Month() != 12 || entries[0].ObservedAt.Day() != 25 {
		t.Errorf("unexpected timestamp %v", entries[0].ObservedAt)
	}
}

func TestParse_WindowsCSV(t *testing.T) {
	p := New(nil)
	entries, _ := p.Parse([]string{
		"10,12/25/23,14:30:45,Lease,192.168.1.101,MyPhone,aabbccddeeff",
	})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.DeviceID != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("DeviceID = %q", e.DeviceID)
	}
	if e.Hostname != "MyPhone" {
		t.Errorf("Hostname = %q", e.Hostname)
	}
	if e.MessageType != models.MessageLease {
		t.Errorf("MessageType = %q", e.MessageType)
	}
	if e.ObservedAt.IsZero() {
		t.Error("expected CSV timestamp to be parsed")
	}
}

func TestParse_RouterAndAssignedFormats(t *testing.T) {
	p := New(nil)
	entries, _ := p.Parse([]string{
		"Dec 25 14:31:00 192.168.1.1 dhcp: DHCP-ACK sent to 192.168.1.102 for MAC aa:bb:cc:dd:ee:f0 hostname smart-plug",
		"Dec 25 14:31:15 RouterOS assigned 192.168.1.103 to aa:bb:cc:dd:ee:f1",
	})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].Hostname != "smart-plug" {
		t.Errorf("router entry hostname = %q", entries[0].Hostname)
	}
	if entries[0].MessageType != models.MessageACK {
		t.Errorf("router entry type = %q", entries[0].MessageType)
	}
	if entries[1].DeviceID != "aa:bb:cc:dd:ee:f1" {
		t.Errorf("assigned entry DeviceID = %q", entries[1].DeviceID)
	}
	if entries[1].MessageType != models.MessageLease {
		t.Errorf("assigned entry type = %q", entries[1].MessageType)
	}
}

func TestParse_XfinityGatewayFormat(t *testing.T) {
	p := New(nil)
	entries, stats := p.Parse([]string{
		"Dec 25 14:32:00 gateway kernel: [DHCP] ACK 10.0.0.5 to aa:bb:cc:dd:ee:f2 (living-room-tv)",
		"Dec 25 14:32:05 gateway kernel: [DHCP] DISCOVER from aa:bb:cc:dd:ee:f3",
		"Dec 25 14:32:10 gateway kernel: [DHCP] REQUEST for 10.0.0.6 from aa:bb:cc:dd:ee:f4 (lease time 86400)",
	})
	if stats.ParsedEntries != 3 || len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d (stats %+v)", len(entries), stats)
	}

	ack := entries[0]
	if ack.DeviceID != "aa:bb:cc:dd:ee:f2" || ack.AssignedAddress != "10.0.0.5" {
		t.Errorf("ack entry = %+v", ack)
	}
	if ack.Hostname != "living-room-tv" {
		t.Errorf("Hostname = %q", ack.Hostname)
	}
	if ack.MessageType != models.MessageACK {
		t.Errorf("MessageType = %q", ack.MessageType)
	}
	if entries[1].MessageType != models.MessageDiscover || entries[1].AssignedAddress != "" {
		t.Errorf("discover entry = %+v", entries[1])
	}
	if entries[2].MessageType != models.MessageRequest || entries[2].AssignedAddress != "10.0.0.6" {
		t.Errorf("request entry = %+v", entries[2])
	}
}

func TestParse_VendorClassInferredFromPrefix(t *testing.T) {
	p := New(nil)

	// A Raspberry Pi line with no option 60: the prefix supplies the
	// vendor class its stock firmware would send.
	entries, _ := p.Parse([]string{
		"Dec 25 14:33:00 dhcpd: DHCPACK on 192.168.1.110 to b8:27:eb:01:02:03",
	})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.VendorClass != "dhcpcd" {
		t.Errorf("VendorClass = %q, want inferred %q", e.VendorClass, "dhcpcd")
	}
	if e.Options[models.OptionVendorClass] != "dhcpcd" {
		t.Errorf("option map 60 = %q", e.Options[models.OptionVendorClass])
	}

	// An explicit option 60 always wins over the prefix table.
	entries, _ = p.Parse([]string{
		`Dec 25 14:33:05 dhcpd: DHCPACK on 192.168.1.111 to b8:27:eb:01:02:04: DHCP-OPTIONS: 60="custom-client"`,
	})
	if entries[0].VendorClass != "custom-client" {
		t.Errorf("VendorClass = %q, explicit option must win", entries[0].VendorClass)
	}

	// Unmapped prefixes stay empty.
	entries, _ = p.Parse([]string{
		"Dec 25 14:33:10 dhcpd: DHCPACK on 192.168.1.112 to aa:bb:cc:dd:ee:ff",
	})
	if entries[0].VendorClass != "" {
		t.Errorf("VendorClass = %q, want empty for unmapped prefix", entries[0].VendorClass)
	}
}

func TestParse_DiscoverWithoutIP(t *testing.T) {
	p := New(nil)
	entries, _ := p.Parse([]string{
		"Dec 25 14:30:45 dhcpd: DHCPDISCOVER from aa:bb:cc:dd:ee:ff via eth0",
	})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].AssignedAddress != "" {
		t.Errorf("expected empty address for DISCOVER, got %q", entries[0].AssignedAddress)
	}
	if entries[0].MessageType != models.MessageDiscover {
		t.Errorf("MessageType = %q", entries[0].MessageType)
	}
}

func TestParse_OptionsBlock(t *testing.T) {
	p := New(nil)
	line := `Dec 25 14:30:45 dhcpd: DHCPACK on 10.0.0.5 to aa:bb:cc:dd:ee:ff (DESKTOP-WIN10): DHCP-OPTIONS: 55=[1, 3, 6, 15, 31], 60="MSFT 5.0", 77="corp-domain", 15="example.lan"`
	entries, _ := p.Parse([]string{line})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.Fingerprint != "1,3,6,15,31" {
		t.Errorf("Fingerprint = %q, want spaces stripped", e.Fingerprint)
	}
	if e.VendorClass != "MSFT 5.0" {
		t.Errorf("VendorClass = %q", e.VendorClass)
	}
	if e.UserClass != "corp-domain" {
		t.Errorf("UserClass = %q", e.UserClass)
	}
	if e.DomainName != "example.lan" {
		t.Errorf("DomainName = %q", e.DomainName)
	}
	if e.Options[models.OptionParameterList] != "1,3,6,15,31" {
		t.Errorf("option map 55 = %q", e.Options[models.OptionParameterList])
	}
	if e.FingerprintOptionCount() != 5 {
		t.Errorf("FingerprintOptionCount = %d, want 5", e.FingerprintOptionCount())
	}
}

func TestParse_UnmatchedLinesAreCounted(t *testing.T) {
	p := New(nil)
	entries, stats := p.Parse([]string{
		"random noise that is not a dhcp line",
		"DHCPACK on 192.168.1.1 to not-a-mac-addr00 (x)",
		"",
		"# a comment",
	})
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries, got %d", len(entries))
	}
	if stats.SkippedLines != 2 {
		t.Errorf("SkippedLines = %d, want 2 (blank and comment lines are not counted)", stats.SkippedLines)
	}
}

func TestParse_Idempotent(t *testing.T) {
	p := New(nil)
	line := "Dec 25 14:30:45 dhcpd: DHCPACK on 192.168.1.100 to AA-BB-CC-DD-EE-FF (phone)"

	first, _ := p.Parse([]string{line})
	second, _ := p.Parse([]string{line})
	if len(first) != 1 || len(second) != 1 {
		t.Fatal("expected both parses to yield one entry")
	}
	a, b := first[0], second[0]
	if a.DeviceID != b.DeviceID || a.Hostname != b.Hostname || a.AssignedAddress != b.AssignedAddress {
		t.Errorf("parsing not idempotent: %+v vs %+v", a, b)
	}
}

func TestDetectFormat(t *testing.T) {
	p := New(nil)

	isc := []string{
		"Dec 25 14:30:45 dhcpd: DHCPACK on 192.168.1.100 to aa:bb:cc:dd:ee:ff",
		"Dec 25 14:30:46 dhcpd: DHCPREQUEST for 192.168.1.100 from aa:bb:cc:dd:ee:ff",
	}
	if got := p.DetectFormat(isc); got != "isc_dhcp" {
		t.Errorf("DetectFormat(isc) = %q", got)
	}

	windows := []string{"10,12/25/23,14:30:45,Lease,192.168.1.101,host,aabbccddeeff"}
	if got := p.DetectFormat(windows); got != "windows_dhcp" {
		t.Errorf("DetectFormat(windows) = %q", got)
	}

	if got := p.DetectFormat([]string{"nothing here"}); got != "" {
		t.Errorf("DetectFormat(noise) = %q, want empty", got)
	}
}

func TestParseReader(t *testing.T) {
	p := New(nil)
	content := "Dec 25 14:30:45 dhcpd: DHCPACK on 10.0.0.1 to aa:bb:cc:00:11:22 (a)\nnoise\n"
	entries, stats := p.ParseReader(strings.NewReader(content))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if stats.SkippedLines != 1 {
		t.Errorf("SkippedLines = %d, want 1", stats.SkippedLines)
	}
}

func TestDecodeHexOption(t *testing.T) {
	if got := decodeHexOption("68656c6c6f"); got != "hello" {
		t.Errorf("decodeHexOption hex = %q", got)
	}
	if got := decodeHexOption("not-hex"); got != "not-hex" {
		t.Errorf("decodeHexOption passthrough = %q", got)
	}
}
