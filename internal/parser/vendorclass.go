package parser

import "github.com/HerbHall/dhcplens/pkg/models"

// ouiVendorClass maps MAC prefixes to the DHCP vendor-class string the
// manufacturer's stock firmware sends, for devices whose logs never
// carried option 60. The inferred value is a secondary classification
// signal (notably for the external API), not ground truth.
var ouiVendorClass = map[string]string{
	// Samsung (primarily Android phones)
	"28:39:5e": "android-dhcp-14",
	"50:32:75": "android-dhcp-13",

	// Apple (iOS/macOS DHCP clients)
	"88:66:5a": "Apple",
	"f0:18:98": "Apple",
	"8c:85:90": "Apple",
	"98:01:a7": "MSFT 5.0", // when used in Windows context

	// Intel NICs (context-dependent)
	"a4:c3:f0": "android-dhcp-13",
	"d4:6d:6d": "dhcpcd",
	"a0:88:b4": "android-dhcp-12",

	// Dell (typically Windows)
	"34:17:eb": "MSFT 5.0",
	"00:1e:c9": "MSFT 5.0",

	// Raspberry Pi (dhcpcd by default)
	"dc:a6:32": "dhcpcd",
	"b8:27:eb": "dhcpcd",

	// Network equipment (lightweight DHCP clients)
	"e8:48:b8": "udhcp",        // TP-Link
	"6c:72:20": "udhcp",        // D-Link
	"58:8b:f3": "busybox-dhcp", // Zyxel
	"c0:56:27": "udhcp",        // Belkin

	// PC component manufacturers in embedded systems
	"b4:2e:99": "udhcp", // GIGA-BYTE
	"2c:f0:5d": "udhcp", // Micro-Star
	"70:85:c2": "udhcp", // ASRock

	// Xiaomi
	"48:2c:a0": "android-dhcp-13",
	"4c:49:e3": "android-dhcp-12",

	// Google/Chromecast
	"94:de:80": "dhcpcd",

	// VMware VMs (Linux)
	"00:50:56": "dhcpcd",
}

// inferVendorClass backfills option 60 from the device's MAC prefix
// when the log line carried no explicit vendor class.
func inferVendorClass(entry *models.LogEntry) {
	if entry.VendorClass != "" || len(entry.DeviceID) < 8 {
		return
	}
	vc, ok := ouiVendorClass[entry.DeviceID[:8]]
	if !ok {
		return
	}
	entry.VendorClass = vc
	if entry.Options == nil {
		entry.Options = make(map[int]string)
	}
	entry.Options[models.OptionVendorClass] = vc
}
