package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HerbHall/dhcplens/pkg/models"
)

// HeuristicBasis records which signal the fallback classifier used.
type HeuristicBasis string

const (
	// HeuristicSpecific: a product-family token matched the hostname.
	HeuristicSpecific HeuristicBasis = "hostname_specific"
	// HeuristicGeneric: a generic keyword matched the hostname.
	HeuristicGeneric HeuristicBasis = "hostname_generic"
	// HeuristicVendor: device type inferred from the vendor table only.
	HeuristicVendor HeuristicBasis = "vendor_inference"
	// HeuristicNone: no signal produced a device type.
	HeuristicNone HeuristicBasis = "none"
)

// HeuristicResult is the fallback classifier's output. The classifier
// always returns a result; an empty DeviceType with unknown confidence
// means "no signal", never an error.
type HeuristicResult struct {
	DeviceType      models.DeviceType
	OperatingSystem string
	Confidence      models.Confidence
	Basis           HeuristicBasis
	Notes           []string
}

type hostnameRule struct {
	pattern    *regexp.Regexp
	deviceType models.DeviceType
	os         string
	specific   bool
}

// hostnameRules are evaluated in order against the lowered hostname;
// first match wins. Product-family tokens (specific=true) come before
// generic keywords so that "galaxy-tab" hits the Galaxy rule, not the
// bare "tab" fallback.
var hostnameRules = []hostnameRule{
	{regexp.MustCompile(`iphone`), models.DeviceTypePhone, "iOS", true},
	{regexp.MustCompile(`ipad`), models.DeviceTypeTablet, "iPadOS", true},
	{regexp.MustCompile(`galaxy`), models.DeviceTypePhone, "Android", true},
	{regexp.MustCompile(`pixel`), models.DeviceTypePhone, "Android", true},
	{regexp.MustCompile(`macbook`), models.DeviceTypeLaptop, "macOS", true},
	{regexp.MustCompile(`imac`), models.DeviceTypeDesktop, "macOS", true},
	{regexp.MustCompile(`chromecast`), models.DeviceTypeStreaming, "Chrome OS", true},
	{regexp.MustCompile(`fire.?tv`), models.DeviceTypeStreaming, "Fire OS", true},
	{regexp.MustCompile(`apple.?tv`), models.DeviceTypeStreaming, "tvOS", true},
	{regexp.MustCompile(`roku`), models.DeviceTypeStreaming, "Roku OS", true},
	{regexp.MustCompile(`echo|alexa`), models.DeviceTypeSmartSpeaker, "Fire OS", true},
	{regexp.MustCompile(`homepod`), models.DeviceTypeSmartSpeaker, "audioOS", true},
	{regexp.MustCompile(`ps[0-9]|playstation`), models.DeviceTypeGamingConsole, "PlayStation OS", true},
	{regexp.MustCompile(`xbox`), models.DeviceTypeGamingConsole, "Xbox OS", true},
	{regexp.MustCompile(`nintendo|switch`), models.DeviceTypeGamingConsole, "Nintendo OS", true},
	{regexp.MustCompile(`raspberry`), models.DeviceTypeSBC, "Linux", true},
	{regexp.MustCompile(`doorbell`), models.DeviceTypeSmartCamera, "Linux", true},
	{regexp.MustCompile(`thermostat|ecobee`), models.DeviceTypeSmartThermostat, "Linux", true},
	{regexp.MustCompile(`print`), models.DeviceTypePrinter, "Embedded OS", true},
	{regexp.MustCompile(`smart.?tv|-tv$|^tv-`), models.DeviceTypeSmartTV, "", true},

	// Generic keywords.
	{regexp.MustCompile(`desktop|workstation`), models.DeviceTypeDesktop, "Windows", false},
	{regexp.MustCompile(`laptop|notebook`), models.DeviceTypeLaptop, "", false},
	{regexp.MustCompile(`server`), models.DeviceTypeServer, "Linux", false},
	{regexp.MustCompile(`android|phone|mobile`), models.DeviceTypePhone, "Android", false},
	{regexp.MustCompile(`tablet`), models.DeviceTypeTablet, "", false},
	{regexp.MustCompile(`router|gateway|access.?point|pfsense`), models.DeviceTypeNetwork, "Linux", false},
	{regexp.MustCompile(`cam`), models.DeviceTypeCamera, "", false},
	{regexp.MustCompile(`ubuntu|debian|linux`), models.DeviceTypeComputer, "Linux", false},
}

// iotSignatures cover embedded-device families by hostname only. Vendor
// is deliberately not consulted here: multi-product vendors (TP-Link
// makes routers and smart plugs) make vendor-based IoT inference
// unreliable.
var iotSignatures = []hostnameRule{
	{regexp.MustCompile(`google.?home|nest.?mini|nest.?hub`), models.DeviceTypeSmartSpeaker, "Google Assistant", false},
	{regexp.MustCompile(`ring|nest.?cam|arlo|wyze|blink|eufy`), models.DeviceTypeSmartCamera, "Linux", false},
	{regexp.MustCompile(`kasa|wemo|smart.?plug`), models.DeviceTypeSmartPlug, "Linux", false},
	{regexp.MustCompile(`hue|lifx`), models.DeviceTypeSmartLighting, "Linux", false},
	{regexp.MustCompile(`esp[-_]?[0-9]+|esp32|esp8266|nodemcu|wemos|lolin|arduino|tasmota|sensor`), models.DeviceTypeIoT, "Embedded OS", false},
}

type vendorRule struct {
	substr      string
	os          string
	defaultType models.DeviceType
	// plausible lists the device types this vendor routinely ships; a
	// hostname-derived type inside this set is not a disagreement.
	plausible []models.DeviceType
}

// vendorRules map vendor-name substrings to a default type and the set
// of plausible types. Ordered: more specific names before broader ones.
var vendorRules = []vendorRule{
	{"raspberry pi", "Linux", models.DeviceTypeSBC, []models.DeviceType{models.DeviceTypeSBC, models.DeviceTypeIoT, models.DeviceTypeServer}},
	{"espressif", "Embedded OS", models.DeviceTypeIoT, []models.DeviceType{models.DeviceTypeIoT, models.DeviceTypeSmartPlug, models.DeviceTypeSmartLighting}},
	{"nintendo", "Nintendo OS", models.DeviceTypeGamingConsole, []models.DeviceType{models.DeviceTypeGamingConsole}},
	{"philips", "Linux", models.DeviceTypeSmartLighting, []models.DeviceType{models.DeviceTypeSmartLighting, models.DeviceTypeSmartTV, models.DeviceTypeIoT}},
	{"amazon", "Fire OS", models.DeviceTypeSmartSpeaker, []models.DeviceType{models.DeviceTypeSmartSpeaker, models.DeviceTypeStreaming, models.DeviceTypeTablet, models.DeviceTypeSmartPlug, models.DeviceTypeSmartCamera}},
	{"apple", "iOS/macOS", models.DeviceTypeComputer, []models.DeviceType{models.DeviceTypePhone, models.DeviceTypeTablet, models.DeviceTypeLaptop, models.DeviceTypeDesktop, models.DeviceTypeComputer, models.DeviceTypeStreaming, models.DeviceTypeSmartSpeaker}},
	{"samsung", "Android", models.DeviceTypePhone, []models.DeviceType{models.DeviceTypePhone, models.DeviceTypeTablet, models.DeviceTypeSmartTV}},
	{"google", "Android", models.DeviceTypePhone, []models.DeviceType{models.DeviceTypePhone, models.DeviceTypeSmartSpeaker, models.DeviceTypeStreaming, models.DeviceTypeSmartCamera, models.DeviceTypeSmartThermostat}},
	{"microsoft", "Windows", models.DeviceTypeDesktop, []models.DeviceType{models.DeviceTypeDesktop, models.DeviceTypeLaptop, models.DeviceTypeGamingConsole, models.DeviceTypeTablet}},
	{"dell", "Windows", models.DeviceTypeLaptop, []models.DeviceType{models.DeviceTypeLaptop, models.DeviceTypeDesktop, models.DeviceTypeServer}},
	{"hp", "", models.DeviceTypePrinter, []models.DeviceType{models.DeviceTypePrinter, models.DeviceTypeDesktop, models.DeviceTypeLaptop, models.DeviceTypeServer}},
	{"lenovo", "Windows", models.DeviceTypeLaptop, []models.DeviceType{models.DeviceTypeLaptop, models.DeviceTypeDesktop, models.DeviceTypeServer}},
	{"arris", "Linux", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork}},
	{"netgear", "Linux", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork, models.DeviceTypeSmartCamera}},
	{"tp-link", "Linux", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork, models.DeviceTypeSmartPlug, models.DeviceTypeSmartLighting}},
	{"linksys", "Linux", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork}},
	{"d-link", "Linux", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork, models.DeviceTypeSmartCamera}},
	{"cisco", "IOS", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork}},
	{"ubiquiti", "UniFi OS", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork, models.DeviceTypeCamera}},
	{"mikrotik", "RouterOS", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork}},
	{"zyxel", "Linux", models.DeviceTypeNetwork, []models.DeviceType{models.DeviceTypeNetwork}},
	{"vmware", "", models.DeviceTypeVM, []models.DeviceType{models.DeviceTypeVM, models.DeviceTypeServer}},
	{"intel", "", models.DeviceTypeComputer, []models.DeviceType{models.DeviceTypeComputer, models.DeviceTypeDesktop, models.DeviceTypeLaptop, models.DeviceTypeServer}},
}

// vendorClassOS maps vendor-class substrings to operating systems;
// evaluated in order, most specific first.
var vendorClassOS = []struct {
	substr string
	os     string
}{
	{"aaplbm", "macOS"},
	{"aaplphone", "iOS"},
	{"msft", "Windows"},
	{"microsoft", "Windows"},
	{"android", "Android"},
	{"apple", "iOS/macOS"},
	{"ubuntu", "Linux"},
	{"linux", "Linux"},
	{"udhcp", "Linux"},
	{"busybox", "Linux"},
	{"dhcpcd", "Linux"},
}

// fingerprintOS maps exact, space-stripped option 55 request lists to
// operating systems. These are well-known client fingerprints; anything
// off-list is handled by the rule classifier's count buckets instead.
var fingerprintOS = map[string]string{
	"1,15,3,6,44,46,47,31,33,121,249,43":        "Windows 10/11",
	"1,15,3,6,44,46,47,31,33,249,43":            "Windows 10",
	"1,3,6,15,31,33,43,44,46,47,119,121,249,252": "Windows 7/8",
	"1,121,3,6,15,119,252,95,44,46":             "iOS/macOS",
	"1,3,6,15,119,95,252,44,46,47":              "macOS",
	"1,3,6,15,26,28,51,58,59,43":                "Android",
	"1,3,6,12,15,26,28,51,58,59":                "Android",
	"1,28,2,3,15,6,119,12,44,47,26,121,42":      "Linux",
}

// Heuristic is the terminal fallback classifier. The zero value is not
// usable; construct with NewHeuristic.
type Heuristic struct {
	hostnames []hostnameRule
	iot       []hostnameRule
	vendors   []vendorRule
}

// NewHeuristic builds the fallback classifier with the default pattern
// banks.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		hostnames: hostnameRules,
		iot:       iotSignatures,
		vendors:   vendorRules,
	}
}

// Classify derives a device type and operating system from whatever
// signals exist. It always returns a result and never fails: with no
// usable signal the result has an empty DeviceType and unknown
// confidence. When the hostname and the vendor table disagree the
// hostname wins and the disagreement is recorded in Notes.
func (h *Heuristic) Classify(hostname, vendor, vendorClass, fingerprint string) HeuristicResult {
	res := HeuristicResult{Confidence: models.ConfidenceUnknown, Basis: HeuristicNone}
	host := strings.ToLower(strings.TrimSpace(hostname))

	if host != "" {
		for _, r := range h.hostnames {
			if !r.pattern.MatchString(host) {
				continue
			}
			res.DeviceType = r.deviceType
			res.OperatingSystem = r.os
			if r.specific {
				res.Confidence = models.ConfidenceHigh
				res.Basis = HeuristicSpecific
			} else {
				res.Confidence = models.ConfidenceMedium
				res.Basis = HeuristicGeneric
			}
			break
		}

		if res.DeviceType == models.DeviceTypeUnknown {
			for _, r := range h.iot {
				if r.pattern.MatchString(host) {
					res.DeviceType = r.deviceType
					res.OperatingSystem = r.os
					res.Confidence = models.ConfidenceMedium
					res.Basis = HeuristicGeneric
					break
				}
			}
		}
	}

	if res.OperatingSystem == "" && fingerprint != "" {
		if os, ok := fingerprintOS[strings.ReplaceAll(fingerprint, " ", "")]; ok {
			res.OperatingSystem = os
		}
	}

	if res.OperatingSystem == "" && vendorClass != "" {
		vc := strings.ToLower(vendorClass)
		for _, entry := range vendorClassOS {
			if strings.Contains(vc, entry.substr) {
				res.OperatingSystem = entry.os
				break
			}
		}
	}

	if vendor != "" {
		if rule, ok := h.vendorRule(vendor); ok {
			switch {
			case res.DeviceType == models.DeviceTypeUnknown:
				res.DeviceType = rule.defaultType
				if res.Basis == HeuristicNone {
					res.Confidence = models.ConfidenceLow
					res.Basis = HeuristicVendor
				}
			case !plausibleType(rule, res.DeviceType):
				res.Notes = append(res.Notes, fmt.Sprintf(
					"hostname wins: hostname suggests %s but vendor %q suggests %s",
					res.DeviceType, vendor, rule.defaultType))
			}
			if res.OperatingSystem == "" {
				res.OperatingSystem = rule.os
			}
		}
	}

	return res
}

func (h *Heuristic) vendorRule(vendor string) (vendorRule, bool) {
	v := strings.ToLower(vendor)
	for _, rule := range h.vendors {
		if strings.Contains(v, rule.substr) {
			return rule, true
		}
	}
	return vendorRule{}, false
}

func plausibleType(rule vendorRule, dt models.DeviceType) bool {
	for _, t := range rule.plausible {
		if t == dt {
			return true
		}
	}
	return false
}
