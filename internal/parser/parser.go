// Package parser turns raw heterogeneous DHCP log text into normalized
// LogEntry records. It maintains an ordered list of format recognizers
// (most structured first); the first recognizer that matches a line wins,
// and lines no recognizer accepts are counted and skipped, never fatal.
package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/HerbHall/dhcplens/pkg/models"
	"go.uber.org/zap"
)

// format is one log-format recognizer. The regular expressions are applied
// unanchored (syslog prefixes vary too much to pin down); named groups
// carry the extracted fields.
type format struct {
	name string
	re   *regexp.Regexp
}

// Recognizers in priority order. ISC dhcpd lines are the most structured
// and claim lines first; the bare "assigned IP to MAC" form is the most
// permissive and runs last.
var formats = []format{
	{
		name: "isc_dhcp",
		re: regexp.MustCompile(
			`(?P<action>DHCPACK|DHCPREQUEST|DHCPOFFER|DHCPDISCOVER)\s+` +
				`(?:(?:on\s+)?(?P<ip>\d+\.\d+\.\d+\.\d+)\s+to\s+(?P<mac>[0-9a-fA-F:]{17})|` +
				`for\s+(?P<ip2>\d+\.\d+\.\d+\.\d+)\s+from\s+(?P<mac2>[0-9a-fA-F:]{17})|` +
				`from\s+(?P<mac3>[0-9a-fA-F:]{17}))` +
				`(?:\s+\((?P<host>[^)]+)\))?` +
				`(?:\s+via\s+(?P<iface>\S+))?`),
	},
	{
		name: "windows_dhcp",
		re: regexp.MustCompile(
			`^(?P<id>\d+),(?P<date>\d{1,2}/\d{1,2}/\d{2,4}),(?P<time>\d{1,2}:\d{2}:\d{2}),` +
				`(?P<action>[\w\s]+),` +
				`(?P<ip>\d+\.\d+\.\d+\.\d+),` +
				`(?P<host>[^,]*),` +
				`(?P<mac>[0-9a-fA-F-]{12,17})`),
	},
	{
		// Xfinity/Comcast gateways log through the kernel facility with
		// bare action names: "kernel: [DHCP] ACK 10.0.0.5 to aa:bb:...".
		name: "xfinity_gateway",
		re: regexp.MustCompile(
			`kernel:\s+\[DHCP\]\s+` +
				`(?P<action>DISCOVER|OFFER|REQUEST|ACK)\s+` +
				`(?:from\s+(?P<mac>[0-9a-fA-F:]{17})|` +
				`(?P<ip>\d+\.\d+\.\d+\.\d+)\s+to\s+(?P<mac2>[0-9a-fA-F:]{17})|` +
				`for\s+(?P<ip2>\d+\.\d+\.\d+\.\d+)\s+from\s+(?P<mac3>[0-9a-fA-F:]{17}))` +
				`(?:\s+\((?P<host>[^)]+)\))?`),
	},
	{
		name: "router_dhcp",
		re: regexp.MustCompile(
			`dhcp:\s+DHCP-(?P<action>ACK|REQUEST|DISCOVER|OFFER)\s+` +
				`(?:(?:sent to|received from)\s+(?P<ip>\d+\.\d+\.\d+\.\d+)\s+for\s+MAC\s+(?P<mac>[0-9a-fA-F:]{17})|` +
				`(?P<ip2>\d+\.\d+\.\d+\.\d+)\s+to\s+MAC\s+(?P<mac2>[0-9a-fA-F:]{17})|` +
				`(?:received\s+)?from\s+MAC\s+(?P<mac3>[0-9a-fA-F:]{17}))` +
				`(?:\s+hostname\s+(?P<host>\S+))?` +
				`(?:\s+requesting\s+(?P<reqip>\d+\.\d+\.\d+\.\d+))?`),
	},
	{
		name: "assigned",
		re: regexp.MustCompile(
			`assigned\s+(?P<ip>\d+\.\d+\.\d+\.\d+)\s+to\s+(?P<mac>[0-9a-fA-F:]{17})` +
				`(?:\s+hostname\s+(?P<host>\S+))?`),
	},
}

// syslogTimestampRe matches the leading timestamp most router/ISC formats
// carry ("Dec 25 14:30:45").
var syslogTimestampRe = regexp.MustCompile(`^(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`)

// timestampLayouts tried in order for best-effort timestamp parsing.
var timestampLayouts = []string{
	"Jan 2 15:04:05",
	"Jan 2 2006 15:04:05",
	"1/2/06 15:04:05",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
}

// Stats counts parsing outcomes for one parse call.
type Stats struct {
	ParsedEntries int `json:"parsed_entries"`
	SkippedLines  int `json:"skipped_lines"`
}

// Parser parses DHCP log lines. Safe for reuse across calls; each call
// returns its own Stats.
type Parser struct {
	logger *zap.Logger
}

// New creates a Parser. A nil logger is replaced with a no-op one.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse processes the given lines and returns every entry that yielded a
// valid device identifier, plus counters for skipped lines. It never
// returns an error: malformed lines are skipped, not fatal.
func (p *Parser) Parse(lines []string) ([]models.LogEntry, Stats) {
	var stats Stats
	entries := make([]models.LogEntry, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, ok := p.parseLine(line)
		if !ok {
			stats.SkippedLines++
			linesSkippedTotal.Inc()
			p.logger.Debug("no recognizer matched line",
				zap.Int("line", i+1),
				zap.String("prefix", truncate(line, 80)),
			)
			continue
		}
		entries = append(entries, entry)
		stats.ParsedEntries++
		linesParsedTotal.Inc()
	}

	return entries, stats
}

// ParseReader reads lines from r and parses them. Read errors end the
// scan; everything read up to that point is still returned.
func (p *Parser) ParseReader(r io.Reader) ([]models.LogEntry, Stats) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("log read ended early", zap.Error(err))
	}
	return p.Parse(lines)
}

// DetectFormat returns the name of the recognizer matching the most lines
// in the sample (first 10 lines considered), or "" when nothing matches.
func (p *Parser) DetectFormat(sample []string) string {
	if len(sample) > 10 {
		sample = sample[:10]
	}

	best := ""
	bestScore := 0
	for _, f := range formats {
		score := 0
		for _, line := range sample {
			if f.re.MatchString(line) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = f.name
		}
	}
	return best
}

// parseLine tries each recognizer in priority order and builds a LogEntry
// from the first match that yields a valid MAC.
func (p *Parser) parseLine(line string) (models.LogEntry, bool) {
	for _, f := range formats {
		m := f.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		g := namedGroups(f.re, m)

		mac, ok := firstMAC(g["mac"], g["mac2"], g["mac3"])
		if !ok {
			// Matched the shape but not a usable MAC; treat as unmatched
			// by this recognizer and let a later one try.
			continue
		}

		action := strings.ToUpper(g["action"])
		ip := firstNonEmpty(g["ip"], g["ip2"], g["reqip"])
		if ip == "" && !strings.Contains(action, "DISCOVER") {
			continue
		}

		entry := models.LogEntry{
			DeviceID:        mac,
			AssignedAddress: ip,
			MessageType:     messageType(action),
			RawLine:         line,
		}

		if host := strings.TrimSpace(g["host"]); host != "" {
			entry.Hostname = host
		}

		if ts, ok := p.lineTimestamp(line, g); ok {
			entry.ObservedAt = ts
		}

		entry.Options = extractOptions(line)
		if entry.Hostname != "" {
			if _, ok := entry.Options[models.OptionHostname]; !ok {
				entry.Options[models.OptionHostname] = entry.Hostname
			}
		}
		promoteOptions(&entry)
		inferVendorClass(&entry)

		return entry, true
	}
	return models.LogEntry{}, false
}

// promoteOptions copies well-known options from the numeric map to the
// entry's named fields.
func promoteOptions(entry *models.LogEntry) {
	if v, ok := entry.Options[models.OptionParameterList]; ok {
		entry.Fingerprint = v
	}
	if v, ok := entry.Options[models.OptionVendorClass]; ok {
		entry.VendorClass = v
	}
	if entry.Hostname == "" {
		if v, ok := entry.Options[models.OptionHostname]; ok {
			entry.Hostname = v
		}
	}
	if v, ok := entry.Options[models.OptionUserClass]; ok {
		entry.UserClass = v
	}
	if v, ok := entry.Options[models.OptionClientFQDN]; ok {
		entry.ClientFQDN = v
	}
	if v, ok := entry.Options[models.OptionClientArch]; ok {
		entry.ClientArch = v
	}
	if v, ok := entry.Options[models.OptionVendorSpecific]; ok {
		entry.VendorSpecific = v
	}
	if v, ok := entry.Options[models.OptionDomainName]; ok {
		entry.DomainName = v
	}
}

// lineTimestamp extracts a timestamp from the windows date/time groups or
// a leading syslog timestamp. Best effort: failure returns ok=false and
// the entry keeps a zero ObservedAt.
func (p *Parser) lineTimestamp(line string, g map[string]string) (time.Time, bool) {
	candidate := ""
	if g["date"] != "" && g["time"] != "" {
		candidate = g["date"] + " " + g["time"]
	} else if m := syslogTimestampRe.FindStringSubmatch(line); m != nil {
		candidate = m[1]
	}
	if candidate == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, candidate, time.Local)
		if err != nil {
			continue
		}
		// Syslog timestamps carry no year.
		if ts.Year() == 0 {
			ts = ts.AddDate(time.Now().Year(), 0, 0)
		}
		return ts, true
	}

	p.logger.Debug("unparseable timestamp", zap.String("value", candidate))
	return time.Time{}, false
}

func messageType(action string) models.MessageType {
	switch {
	case strings.Contains(action, "ACK"):
		return models.MessageACK
	case strings.Contains(action, "REQUEST"):
		return models.MessageRequest
	case strings.Contains(action, "OFFER"):
		return models.MessageOffer
	case strings.Contains(action, "DISCOVER"):
		return models.MessageDiscover
	default:
		return models.MessageLease
	}
}

// namedGroups maps subexpression names to their captured values.
func namedGroups(re *regexp.Regexp, match []string) map[string]string {
	g := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			g[name] = match[i]
		}
	}
	return g
}

func firstMAC(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if mac, ok := NormalizeMAC(c); ok {
			return mac, true
		}
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
