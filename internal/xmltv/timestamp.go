package xmltv

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reTimestamp = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})(?:\s*([+-])(\d{2})(\d{2}))?`)

// fallbackLayouts are tried when a timestamp does not follow the XMLTV grammar.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// ParseTimestamp parses an XMLTV timestamp ("20250101100000 +0000").
// A missing offset means UTC. Anything else is parsed best-effort; when that
// fails too the zero time is returned.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if m := reTimestamp.FindStringSubmatch(s); m != nil {
		n := make([]int, 6)
		for i := range n {
			n[i], _ = strconv.Atoi(m[i+1])
		}
		loc := time.UTC
		if m[7] != "" {
			hh, _ := strconv.Atoi(m[8])
			mm, _ := strconv.Atoi(m[9])
			offset := hh*3600 + mm*60
			if m[7] == "-" {
				offset = -offset
			}
			loc = time.FixedZone("", offset)
		}
		t := time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, loc)
		// time.Date normalises out-of-range fields; reject them like an ISO parser would.
		if t.Month() != time.Month(n[1]) || t.Day() != n[2] || t.Hour() != n[3] || t.Minute() != n[4] || t.Second() != n[5] {
			return time.Time{}
		}
		return t.UTC()
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FormatTimestamp renders t in the XMLTV grammar with its UTC offset.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102150405 -0700")
}
