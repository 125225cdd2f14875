package models

import "time"

// DeviceType categorizes a network device. Values produced by the local
// classifiers use the constants below; the external classifier may return
// additional category names, which pass through unchanged.
type DeviceType string

const (
	DeviceTypePhone          DeviceType = "Phone"
	DeviceTypeTablet         DeviceType = "Tablet"
	DeviceTypeComputer       DeviceType = "Computer"
	DeviceTypeLaptop         DeviceType = "Laptop"
	DeviceTypeDesktop        DeviceType = "Desktop"
	DeviceTypeServer         DeviceType = "Server"
	DeviceTypeIoT            DeviceType = "IoT Device"
	DeviceTypeSmartDevice    DeviceType = "Smart Device"
	DeviceTypeSmartSpeaker   DeviceType = "Smart Speaker"
	DeviceTypeSmartCamera    DeviceType = "Smart Camera"
	DeviceTypeSmartThermostat DeviceType = "Smart Thermostat"
	DeviceTypeSmartLighting  DeviceType = "Smart Lighting"
	DeviceTypeSmartPlug      DeviceType = "Smart Plug"
	DeviceTypeSmartTV        DeviceType = "Smart TV"
	DeviceTypeStreaming      DeviceType = "Streaming Device"
	DeviceTypeGamingConsole  DeviceType = "Gaming Console"
	DeviceTypePrinter        DeviceType = "Printer"
	DeviceTypeCamera         DeviceType = "Camera"
	DeviceTypeNetwork        DeviceType = "Network Device"
	DeviceTypeSBC            DeviceType = "Single Board Computer"
	DeviceTypeVM             DeviceType = "Virtual Machine"
	DeviceTypeUnknown        DeviceType = ""
)

// Confidence is the categorical confidence tier attached to a
// classification or to one of its contributing signals.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// Method records which stage of the classification cascade produced the
// device type.
type Method string

const (
	MethodVendorOnly      Method = "vendor_only"
	MethodFingerbank      Method = "fingerbank"
	MethodFingerprintRule Method = "fingerprint_rule"
	MethodHeuristic       Method = "heuristic_fallback"
	MethodUnknown         Method = "unknown"
)

// ClassificationResult is the output unit for one device. It is created
// once per device per analysis run and never mutated afterwards.
type ClassificationResult struct {
	DeviceID        string     `json:"device_id"`
	AssignedAddress string     `json:"assigned_address,omitempty"`
	Hostname        string     `json:"hostname,omitempty"`
	Vendor          string     `json:"vendor,omitempty"`
	VendorConfidence Confidence `json:"vendor_confidence"`
	DeviceType      DeviceType `json:"device_type,omitempty"`
	DeviceName      string     `json:"device_name,omitempty"`
	OperatingSystem string     `json:"operating_system,omitempty"`
	Method          Method     `json:"classification_method"`
	// ExternalScore is the external API's 0-100 confidence score; nil when
	// the external stage did not produce a response for this device.
	ExternalScore     *int       `json:"external_score,omitempty"`
	OverallConfidence Confidence `json:"overall_confidence"`

	// Carried through for diagnostics and export.
	RawFingerprint string `json:"raw_fingerprint,omitempty"`
	VendorClass    string `json:"vendor_class,omitempty"`

	// ErrorNote records why a stage failed (rate limit, API error); it does
	// not indicate a failed classification.
	ErrorNote string `json:"error_note,omitempty"`
	// Notes is the diagnostic trail: stage annotations such as a
	// hostname/vendor-table disagreement.
	Notes []string `json:"notes,omitempty"`

	ClassifiedAt time.Time `json:"classified_at"`
}

// RunStats aggregates pipeline counters for one analysis run.
type RunStats struct {
	TotalDevices     int `json:"total_devices"`
	VendorResolved   int `json:"vendor_resolved"`
	ExternalSuccess  int `json:"external_success"`
	RuleSuccess      int `json:"fingerprint_rule_success"`
	HeuristicSuccess int `json:"heuristic_success"`
	Unclassified     int `json:"unclassified"`
	DeviceErrors     int `json:"device_errors"`

	ParsedEntries int `json:"parsed_entries"`
	SkippedLines  int `json:"skipped_lines"`
}
