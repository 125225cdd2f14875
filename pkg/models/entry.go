package models

import "time"

// MessageType is the DHCP message kind observed on a log line.
type MessageType string

const (
	MessageACK      MessageType = "ACK"
	MessageRequest  MessageType = "REQUEST"
	MessageOffer    MessageType = "OFFER"
	MessageDiscover MessageType = "DISCOVER"
	// MessageLease covers log formats that record a plain lease assignment
	// without naming the DHCP exchange step.
	MessageLease MessageType = "LEASE"
)

// Well-known DHCP option numbers promoted to named LogEntry fields.
const (
	OptionHostname       = 12 // Host Name
	OptionDomainName     = 15 // Domain Name
	OptionVendorSpecific = 43 // Vendor-Specific Information
	OptionParameterList  = 55 // Parameter Request List (the DHCP fingerprint)
	OptionVendorClass    = 60 // Vendor Class Identifier
	OptionUserClass      = 77 // User Class
	OptionClientFQDN     = 81 // Client FQDN
	OptionClientArch     = 93 // Client System Architecture
)

// LogEntry is one parsed observation of a device from one DHCP log line.
// DeviceID is the normalized MAC address (lowercase, colon-separated) and
// is the only required field; everything else is best-effort.
type LogEntry struct {
	DeviceID        string      `json:"device_id"`
	AssignedAddress string      `json:"assigned_address,omitempty"`
	Hostname        string      `json:"hostname,omitempty"`
	VendorClass     string      `json:"vendor_class,omitempty"`
	Fingerprint     string      `json:"fingerprint,omitempty"` // option 55, ordered comma-separated
	UserClass       string      `json:"user_class,omitempty"`
	ClientFQDN      string      `json:"client_fqdn,omitempty"`
	ClientArch      string      `json:"client_arch,omitempty"`
	VendorSpecific  string      `json:"vendor_specific,omitempty"`
	DomainName      string      `json:"domain_name,omitempty"`
	Options         map[int]string `json:"options,omitempty"` // every extracted option, keyed by number
	MessageType     MessageType `json:"message_type,omitempty"`
	ObservedAt      time.Time   `json:"observed_at,omitempty"` // zero when the timestamp could not be parsed
	RawLine         string      `json:"-"`
}

// HasFingerprint reports whether the entry carries a parameter request list.
func (e *LogEntry) HasFingerprint() bool {
	return e.Fingerprint != ""
}

// FingerprintOptionCount returns the number of options in the parameter
// request list, or 0 when no fingerprint is present.
func (e *LogEntry) FingerprintOptionCount() int {
	if e.Fingerprint == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(e.Fingerprint); i++ {
		if e.Fingerprint[i] == ',' {
			n++
		}
	}
	return n
}
