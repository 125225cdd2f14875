// Package classify contains the local device classifiers and the fusion
// engine that orchestrates them: vendor lookup, external classification,
// fingerprint rules, heuristic fallback, then weighted confidence fusion.
package classify

import (
	"strings"

	"github.com/HerbHall/dhcplens/pkg/models"
)

// RuleBasis records which part of the fingerprint rule set produced a
// result. The basis feeds confidence fusion: a vendor-class signature is
// a much stronger signal than a bare option count.
type RuleBasis string

const (
	// BasisSignature: a vendor-class literal matched (console, streaming
	// or smart-home client string).
	BasisSignature RuleBasis = "signature"
	// BasisRefined: the option-count bucket was narrowed using vendor or
	// vendor-class context.
	BasisRefined RuleBasis = "refined"
	// BasisCount: pure option-count inference. Count alone is a weak
	// signal; results carry low confidence.
	BasisCount RuleBasis = "count"
)

// RuleResult is one fingerprint-rule classification.
type RuleResult struct {
	DeviceType models.DeviceType
	Confidence models.Confidence
	Basis      RuleBasis
}

// vendorClassSignatures are checked first, in order, against the lowered
// vendor class. A match bypasses the count buckets entirely.
var vendorClassSignatures = []struct {
	substrings []string
	deviceType models.DeviceType
}{
	{[]string{"ps5", "ps4", "playstation", "nintendo", "xbox"}, models.DeviceTypeGamingConsole},
	{[]string{"roku", "fire tv", "firetv", "chromecast", "appletv"}, models.DeviceTypeStreaming},
	{[]string{"ring", "nest", "hue"}, models.DeviceTypeSmartDevice},
}

// ClassifyByFingerprint classifies a device from its DHCP fingerprint
// (the option 55 request list). The vendor class, when present, is tried
// against known signatures first; otherwise the option count alone picks
// a coarse bucket, optionally refined by vendor context. Returns false
// when no fingerprint is available.
func ClassifyByFingerprint(fingerprint, vendorClass, vendor string) (RuleResult, bool) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return RuleResult{}, false
	}

	if vendorClass != "" {
		vc := strings.ToLower(vendorClass)
		for _, sig := range vendorClassSignatures {
			for _, sub := range sig.substrings {
				if strings.Contains(vc, sub) {
					return RuleResult{
						DeviceType: sig.deviceType,
						Confidence: models.ConfidenceMedium,
						Basis:      BasisSignature,
					}, true
				}
			}
		}
	}

	count := len(strings.Split(fingerprint, ","))
	switch {
	case count <= 3:
		return classifyMinimal(vendor), true
	case count <= 6:
		return classifySmart(vendor), true
	case count <= 9:
		return classifyMobile(vendor), true
	default:
		return classifyComplex(vendorClass), true
	}
}

// classifyMinimal handles devices requesting three options or fewer,
// typical of constrained embedded stacks.
func classifyMinimal(vendor string) RuleResult {
	v := strings.ToLower(vendor)
	switch {
	case strings.Contains(v, "espressif"), strings.Contains(v, "murata"):
		return RuleResult{models.DeviceTypeIoT, models.ConfidenceLow, BasisRefined}
	case strings.Contains(v, "philips"):
		return RuleResult{models.DeviceTypeSmartLighting, models.ConfidenceLow, BasisRefined}
	}
	return RuleResult{models.DeviceTypeIoT, models.ConfidenceLow, BasisCount}
}

func classifySmart(vendor string) RuleResult {
	v := strings.ToLower(vendor)
	switch {
	case strings.Contains(v, "amazon"):
		return RuleResult{models.DeviceTypeSmartSpeaker, models.ConfidenceLow, BasisRefined}
	case strings.Contains(v, "philips"):
		return RuleResult{models.DeviceTypeSmartLighting, models.ConfidenceLow, BasisRefined}
	case strings.Contains(v, "nintendo"):
		return RuleResult{models.DeviceTypeGamingConsole, models.ConfidenceLow, BasisRefined}
	}
	return RuleResult{models.DeviceTypeSmartDevice, models.ConfidenceLow, BasisCount}
}

func classifyMobile(vendor string) RuleResult {
	v := strings.ToLower(vendor)
	for _, mobile := range []string{"apple", "samsung", "google", "huawei"} {
		if strings.Contains(v, mobile) {
			return RuleResult{models.DeviceTypePhone, models.ConfidenceLow, BasisRefined}
		}
	}
	return RuleResult{models.DeviceTypePhone, models.ConfidenceLow, BasisCount}
}

func classifyComplex(vendorClass string) RuleResult {
	vc := strings.ToLower(vendorClass)
	for _, os := range []string{"msft", "microsoft", "windows", "dhcpcd", "linux"} {
		if strings.Contains(vc, os) {
			return RuleResult{models.DeviceTypeComputer, models.ConfidenceLow, BasisRefined}
		}
	}
	return RuleResult{models.DeviceTypeComputer, models.ConfidenceLow, BasisCount}
}
