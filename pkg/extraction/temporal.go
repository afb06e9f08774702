package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativeEnRe and namedEnRe match English relative-time phrases: "3 days
// ago", "2 weeks ago", "next week", "yesterday", "today", "tomorrow".
var (
	relativeEnRe = regexp.MustCompile(`(?i)\b(\d+)\s+(day|days|week|weeks|month|months|year|years|hour|hours|minute|minutes)\s+ago\b`)
	namedEnRe    = regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|last night|this morning|last week|next week|last month|next month)\b`)
	relativeViRe = regexp.MustCompile(`(\d+)\s*(ngày|tuần|tháng|năm|giờ|phút)\s*trước`)
	namedViRe    = regexp.MustCompile(`\b(hôm qua|hôm nay|ngày mai|tuần trước|tuần sau|tháng trước|tháng sau)\b`)
	// absoluteRe matches ISO-ish and numeric written dates: 2026-07-31,
	// 31/07/2026. Month-name dates ("July 31 2026") are not matched.
	absoluteRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b|\b(\d{1,2}/\d{1,2}/\d{4})\b`)
)

// ExtractTemporalPhrases returns every recognized time expression in
// text, English and Vietnamese, as found (not yet normalized).
func ExtractTemporalPhrases(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[strings.ToLower(s)] {
			seen[strings.ToLower(s)] = true
			out = append(out, s)
		}
	}
	for _, m := range relativeEnRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range namedEnRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range relativeViRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range namedViRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range absoluteRe.FindAllString(text, -1) {
		add(m)
	}
	return out
}

var (
	unitDurations = map[string]time.Duration{
		"minute": time.Minute, "minutes": time.Minute, "phút": time.Minute,
		"hour": time.Hour, "hours": time.Hour, "giờ": time.Hour,
		"day": 24 * time.Hour, "days": 24 * time.Hour, "ngày": 24 * time.Hour,
		"week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour, "tuần": 7 * 24 * time.Hour,
		"month": 30 * 24 * time.Hour, "months": 30 * 24 * time.Hour, "tháng": 30 * 24 * time.Hour,
		"year": 365 * 24 * time.Hour, "years": 365 * 24 * time.Hour, "năm": 365 * 24 * time.Hour,
	}
	namedOffsets = map[string]time.Duration{
		"yesterday": -24 * time.Hour, "hôm qua": -24 * time.Hour,
		"today": 0, "hôm nay": 0,
		"tomorrow": 24 * time.Hour, "ngày mai": 24 * time.Hour,
		"last week": -7 * 24 * time.Hour, "tuần trước": -7 * 24 * time.Hour,
		"next week": 7 * 24 * time.Hour, "tuần sau": 7 * 24 * time.Hour,
		"last month": -30 * 24 * time.Hour, "tháng trước": -30 * 24 * time.Hour,
		"next month": 30 * 24 * time.Hour, "tháng sau": 30 * 24 * time.Hour,
		"last night": -12 * time.Hour, "this morning": 0,
	}
)

// NormalizeTemporalPhrase resolves a recognized phrase to an absolute
// instant: named and relative phrases relative to now, and absolute
// date literals (YYYY-MM-DD, DD/MM/YYYY) as written. It returns
// ok=false for any phrase it does not recognize.
func NormalizeTemporalPhrase(phrase string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(strings.TrimSpace(phrase))

	if d, ok := namedOffsets[lower]; ok {
		return now.Add(d), true
	}

	if m := relativeEnRe.FindStringSubmatch(lower); m != nil {
		return resolveRelative(m[1], m[2], now)
	}
	if m := relativeViRe.FindStringSubmatch(lower); m != nil {
		return resolveRelative(m[1], m[2], now)
	}

	if t, err := time.Parse("2006-01-02", phrase); err == nil {
		return t, true
	}
	if t, err := time.Parse("02/01/2006", phrase); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func resolveRelative(countStr, unit string, now time.Time) (time.Time, bool) {
	n, err := strconv.Atoi(countStr)
	if err != nil {
		return time.Time{}, false
	}
	d, ok := unitDurations[unit]
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(n) * d), true
}

// ISO8601 formats t the way persisted temporal neuron content is
// canonicalized, so two spans resolving to the same instant dedup to
// the same neuron.
func ISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// CanonicalTemporalContent resolves phrase against now and returns its
// ISO-8601 canonical form, or the original phrase (lowercased, trimmed)
// if it could not be resolved — still usable as a neuron content key,
// just not comparable across differing "now" anchors.
func CanonicalTemporalContent(phrase string, now time.Time) string {
	if t, ok := NormalizeTemporalPhrase(phrase, now); ok {
		return ISO8601(t)
	}
	return strings.ToLower(strings.TrimSpace(phrase))
}
