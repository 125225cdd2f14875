package parser

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Option extraction from embedded DHCP-OPTIONS blocks and loose key/value
// syntax. The structured block looks like:
//
//	DHCP-OPTIONS: 55=[1,3,6,15], 60="MSFT 5.0", 12="DESKTOP-WIN10"
//
// Loose fallback forms (vendor_class: "...", PRL: 1,3,6) appear in some
// router firmwares and are tried only for options the block did not supply.
var (
	optionsBlockRe = regexp.MustCompile(`DHCP-OPTIONS:\s*(.+)`)
	// Matches one option assignment: quoted string, bracketed number list,
	// or bare numeric/dotted value.
	optionAssignRe = regexp.MustCompile(`(\d{1,3})=(?:"([^"]*)"|\[([0-9,\s]+)\]|([0-9][0-9.,]*))`)
	parenHostRe    = regexp.MustCompile(`\(([^)]+)\)`)

	fallbackOptionRes = map[int][]*regexp.Regexp{
		60: {
			regexp.MustCompile(`(?i)vendor[_-]class[:\s]+"([^"]+)"`),
			regexp.MustCompile(`(?i)vendor[_-]class[:\s]+([^\s,;]+)`),
			regexp.MustCompile(`(?i)VCI[:\s]+"([^"]+)"`),
		},
		55: {
			regexp.MustCompile(`(?i)param[_-]req[_-]list[:\s]+([0-9,\s]+)`),
			regexp.MustCompile(`(?i)PRL[:\s]+([0-9,\s]+)`),
			regexp.MustCompile(`(?i)parameter[_-]request[:\s]+([0-9,\s]+)`),
		},
		77: {
			regexp.MustCompile(`(?i)user[_-]class[:\s]+"([^"]+)"`),
			regexp.MustCompile(`(?i)user[_-]class[:\s]+([^\s,;]+)`),
		},
	}
)

// extractOptions pulls every recognizable DHCP option out of a raw log
// line into a number-keyed map. Option 55 values are normalized to a
// space-free comma list; option 43 payloads are hex-decoded when possible.
func extractOptions(line string) map[int]string {
	options := make(map[int]string)

	if m := optionsBlockRe.FindStringSubmatch(line); m != nil {
		for _, assign := range optionAssignRe.FindAllStringSubmatch(m[1], -1) {
			num, err := strconv.Atoi(assign[1])
			if err != nil {
				continue
			}
			value := assign[2]
			if value == "" {
				value = assign[3]
			}
			if value == "" {
				value = assign[4]
			}
			switch num {
			case 55:
				value = strings.ReplaceAll(value, " ", "")
			case 43:
				value = decodeHexOption(value)
			}
			options[num] = value
		}
	}

	for num, patterns := range fallbackOptionRes {
		if _, ok := options[num]; ok {
			continue
		}
		for _, re := range patterns {
			if m := re.FindStringSubmatch(line); m != nil {
				value := strings.TrimSpace(m[1])
				if num == 55 {
					value = strings.ReplaceAll(value, " ", "")
				}
				options[num] = value
				break
			}
		}
	}

	// Hostname in parentheses is the ISC convention for option 12.
	if _, ok := options[12]; !ok {
		if m := parenHostRe.FindStringSubmatch(line); m != nil {
			options[12] = m[1]
		}
	}

	return options
}

// decodeHexOption decodes a hex-encoded option payload (with or without
// colon separators) to text, returning the input unchanged when it is not
// valid printable data.
func decodeHexOption(s string) string {
	raw, err := hex.DecodeString(strings.ReplaceAll(s, ":", ""))
	if err != nil || !utf8.Valid(raw) {
		return s
	}
	return string(raw)
}
