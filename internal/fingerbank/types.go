// Package fingerbank implements a client for the Fingerbank device
// classification API (v2 combinations/interrogate). The client enforces
// the Community tier's hourly and daily request ceilings locally, spaces
// consecutive calls, and retries transient failures with exponential
// backoff. Auth failures and rate-limit refusals are surfaced as typed
// errors so the caller can fall through to local classification.
package fingerbank

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited is returned when a call is refused locally because the
// hourly or daily request window is at its ceiling. No network call was
// made.
var ErrRateLimited = errors.New("fingerbank: rate limit exceeded")

// ErrAuthDisabled is returned once repeated auth failures have disabled
// the client for the remainder of the run.
var ErrAuthDisabled = errors.New("fingerbank: disabled after repeated auth failures")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fingerbank: API returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status indicates a transient condition.
// 429 and 5xx are retried; other 4xx (auth, malformed request) are not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// AuthFailure reports whether the status indicates a key problem.
func (e *APIError) AuthFailure() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// Request carries the signals sent to the interrogate endpoint. All
// fields but MAC are optional; empty fields are omitted from the query.
type Request struct {
	MAC             string
	DHCPFingerprint string
	DHCPVendorClass string
	Hostname        string
	ClientFQDN      string
}

// Empty reports whether the request carries no classifiable signal.
func (r Request) Empty() bool {
	return r.DHCPFingerprint == "" && r.DHCPVendorClass == "" && r.Hostname == "" && r.ClientFQDN == ""
}

// Classification is the normalized API response. A response may be valid
// yet unclassifying: Score is set but DeviceType is empty (typically a
// bare "Hardware Manufacturer" hierarchy). Callers must treat that as
// "no classification", not as an error.
type Classification struct {
	DeviceName      string   `json:"device_name,omitempty"`
	DeviceType      string   `json:"device_type,omitempty"`
	OperatingSystem string   `json:"operating_system,omitempty"`
	Manufacturer    string   `json:"manufacturer,omitempty"`
	Score           int      `json:"score"`
	Hierarchy       []string `json:"hierarchy,omitempty"`
}

// Classified reports whether the response carries a usable device type.
func (c *Classification) Classified() bool {
	return c != nil && c.DeviceType != ""
}

// interrogateResponse is the wire shape. The API is inconsistent across
// record kinds: the hierarchy may arrive as a slash-delimited device_name
// path, as a parents list on the device object, or both.
type interrogateResponse struct {
	Score      int    `json:"score"`
	DeviceName string `json:"device_name"`
	Device     struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		OS      string `json:"os"`
		Parents []struct {
			Name string `json:"name"`
		} `json:"parents"`
	} `json:"device"`
	Manufacturer struct {
		Name string `json:"name"`
	} `json:"manufacturer"`
}

// hardwareManufacturerCategory is the generic top-level category the API
// returns when it can only identify the NIC vendor, not the device.
const hardwareManufacturerCategory = "Hardware Manufacturer"

// normalize maps a wire response to a Classification.
func (r *interrogateResponse) normalize() *Classification {
	c := &Classification{Score: r.Score}

	c.Hierarchy = r.hierarchy()
	if len(c.Hierarchy) > 0 {
		c.DeviceName = c.Hierarchy[len(c.Hierarchy)-1]
	}

	// A hierarchy rooted at the generic manufacturer category identifies
	// the vendor but not the device.
	if len(c.Hierarchy) > 0 && c.Hierarchy[0] != hardwareManufacturerCategory {
		c.DeviceType = c.Hierarchy[0]
	}

	c.OperatingSystem = r.Device.OS
	if c.OperatingSystem == "" {
		for _, part := range c.Hierarchy {
			if strings.EqualFold(part, "Operating System") {
				c.OperatingSystem = c.Hierarchy[len(c.Hierarchy)-1]
				break
			}
		}
	}

	c.Manufacturer = r.Manufacturer.Name
	if c.Manufacturer == "" && len(c.Hierarchy) >= 2 && c.Hierarchy[0] == hardwareManufacturerCategory {
		c.Manufacturer = c.Hierarchy[1]
	}

	return c
}

// hierarchy assembles the category path, preferring the parents list and
// falling back to splitting the slash-delimited device_name.
func (r *interrogateResponse) hierarchy() []string {
	if len(r.Device.Parents) > 0 {
		path := make([]string, 0, len(r.Device.Parents)+1)
		// Parents arrive most-specific-first; reverse to general->specific.
		for i := len(r.Device.Parents) - 1; i >= 0; i-- {
			if name := strings.TrimSpace(r.Device.Parents[i].Name); name != "" {
				path = append(path, name)
			}
		}
		if name := strings.TrimSpace(r.Device.Name); name != "" {
			path = append(path, name)
		}
		return path
	}

	if r.DeviceName != "" {
		parts := strings.Split(r.DeviceName, "/")
		path := make([]string, 0, len(parts))
		for _, part := range parts {
			if p := strings.TrimSpace(part); p != "" {
				path = append(path, p)
			}
		}
		return path
	}

	if name := strings.TrimSpace(r.Device.Name); name != "" {
		return []string{name}
	}
	return nil
}
