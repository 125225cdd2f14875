package parser

import "strings"

// NormalizeMAC converts any common MAC notation (colon, hyphen, bare hex,
// mixed case) to the canonical lowercase colon-separated form. Returns
// false when the input does not contain exactly 12 hex digits.
func NormalizeMAC(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	var hex [12]byte
	n := 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
			// already canonical
		case c >= 'A' && c <= 'F':
			c += 'a' - 'A'
		case c == ':' || c == '-' || c == '.':
			continue
		default:
			return "", false
		}
		if n == 12 {
			return "", false
		}
		hex[n] = c
		n++
	}
	if n != 12 {
		return "", false
	}

	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteByte(hex[i])
		b.WriteByte(hex[i+1])
	}
	return b.String(), true
}

// OUI returns the first three octets of a normalized MAC address
// (aa:bb:cc), or "" when the input is too short.
func OUI(mac string) string {
	if len(mac) < 8 {
		return ""
	}
	return mac[:8]
}
