// Package archive models Wayback Machine snapshot URLs and the calendar
// table produced by the upstream archive walk.
package archive

import (
	"fmt"
	"strconv"
	"strings"
)

// marker precedes the 14-digit capture timestamp in every snapshot URL.
const marker = "/web/"

// Group is one calendar month's worth of snapshot URLs. NominalYear and
// NominalMonth come from the calendar page the snapshots were listed under;
// the capture timestamp inside each URL is authoritative and may disagree.
type Group struct {
	NominalYear  int
	NominalMonth int
	Links        []string
}

// CaptureDate extracts the actual capture year and month from a snapshot
// URL's timestamp segment. Callers must pass the final, post-redirect URL:
// the archive redirects through capture proxies and only the effective
// response URL carries the true timestamp.
func CaptureDate(rawURL string) (year, month int, err error) {
	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return 0, 0, fmt.Errorf("no %q segment in %q", marker, rawURL)
	}
	ts := rawURL[idx+len(marker):]
	if len(ts) < 8 {
		return 0, 0, fmt.Errorf("truncated capture timestamp in %q", rawURL)
	}
	ts = ts[:8]
	for _, r := range ts {
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("malformed capture timestamp %q in %q", ts, rawURL)
		}
	}
	year, _ = strconv.Atoi(ts[:4])
	month, _ = strconv.Atoi(ts[4:6])
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("capture month %d out of range in %q", month, rawURL)
	}
	return year, month, nil
}

// Reconstruct recovers the original article URL from an archive-wrapped href
// by taking the substring from the last occurrence of the scheme token. The
// archive nests the target URL at the end of the href, sometimes behind a
// click-tracking proxy that itself embeds an http(s) URL in its query.
func Reconstruct(href string) (string, bool) {
	i := strings.LastIndex(href, "http")
	if i < 0 {
		return "", false
	}
	return href[i:], true
}
