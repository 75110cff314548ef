package rda

import (
	"regexp"
	"strings"
)

// meas_<MID>_<FID>_<series description>.dat
var twixname = regexp.MustCompile(`(?i)^meas_[^_]+_[^_]+_(.+)\.dat$`)

// SeriesFromFilename extracts the series description encoded in a TWIX
// filename. It returns "" when the name does not follow the meas_ scheme.
func SeriesFromFilename(name string) string {
	m := twixname.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// NormalizeSeriesKey strips underscores, dashes and case so header and
// filename spellings of the same series compare equal.
func NormalizeSeriesKey(s string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(s))
}

// BestMatch picks the RDA identity a TWIX file belongs to. Scoring follows
// the uploader heuristic: +2 when the normalized series descriptions
// overlap, +3 when the scan id appears in the filename. A zero score means
// no match.
func BestMatch(datName string, candidates []Identity) (Identity, bool) {
	base := NormalizeSeriesKey(datName)

	var best Identity
	bestScore := 0
	for _, id := range candidates {
		if id.SeriesDescription == "" {
			continue
		}

		score := 0
		desc := NormalizeSeriesKey(id.SeriesDescription)
		if strings.Contains(base, desc) || strings.Contains(desc, base) {
			score += 2
		}
		if id.ScanID != "" && strings.Contains(datName, id.ScanID) {
			score += 3
		}

		if score > bestScore {
			best = id
			bestScore = score
		}
	}

	return best, bestScore > 0
}
