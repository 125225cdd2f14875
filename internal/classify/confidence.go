package classify

import "github.com/HerbHall/dhcplens/pkg/models"

// Weights are the confidence fusion point values. They are policy, not
// ground truth: the defaults reflect observed usefulness of each signal
// and are loaded from configuration rather than hard-coded at call sites.
type Weights struct {
	VendorFound int

	// External stage contribution, tiered by the API's own score.
	ExternalHigh   int // score >= 80
	ExternalMedium int // score >= 60
	ExternalLow    int // any lower score

	// Heuristic fallback contribution by basis.
	HeuristicSpecific int
	HeuristicGeneric  int
	HeuristicVendor   int

	// Fingerprint rule contribution by basis.
	RuleShortcut int
	RuleRefined  int
	RuleCount    int

	// Presence bonuses.
	HostnamePresent    int
	VendorClassPresent int
}

// DefaultWeights returns the built-in fusion policy.
func DefaultWeights() Weights {
	return Weights{
		VendorFound:        20,
		ExternalHigh:       60,
		ExternalMedium:     40,
		ExternalLow:        20,
		HeuristicSpecific:  50,
		HeuristicGeneric:   30,
		HeuristicVendor:    20,
		RuleShortcut:       40,
		RuleRefined:        25,
		RuleCount:          10,
		HostnamePresent:    10,
		VendorClassPresent: 10,
	}
}

// fusionSignals collects what each stage contributed for one device.
type fusionSignals struct {
	vendorFound   bool
	method        models.Method
	externalScore int
	ruleBasis     RuleBasis
	heurBasis     HeuristicBasis
	hasHostname   bool
	hasVendorCls  bool
}

// score computes the weighted fusion total.
func (w Weights) score(s fusionSignals) int {
	total := 0
	if s.vendorFound {
		total += w.VendorFound
	}

	switch s.method {
	case models.MethodFingerbank:
		switch {
		case s.externalScore >= 80:
			total += w.ExternalHigh
		case s.externalScore >= 60:
			total += w.ExternalMedium
		default:
			total += w.ExternalLow
		}
	case models.MethodFingerprintRule:
		switch s.ruleBasis {
		case BasisSignature:
			total += w.RuleShortcut
		case BasisRefined:
			total += w.RuleRefined
		default:
			total += w.RuleCount
		}
	case models.MethodHeuristic:
		switch s.heurBasis {
		case HeuristicSpecific:
			total += w.HeuristicSpecific
		case HeuristicGeneric:
			total += w.HeuristicGeneric
		default:
			total += w.HeuristicVendor
		}
	}

	if s.hasHostname {
		total += w.HostnamePresent
	}
	if s.hasVendorCls {
		total += w.VendorClassPresent
	}
	return total
}

// Fuse maps the weighted score to a categorical confidence tier.
func (w Weights) Fuse(s fusionSignals) models.Confidence {
	return tier(w.score(s))
}

func tier(score int) models.Confidence {
	switch {
	case score >= 80:
		return models.ConfidenceHigh
	case score >= 50:
		return models.ConfidenceMedium
	case score >= 30:
		return models.ConfidenceLow
	default:
		return models.ConfidenceUnknown
	}
}
