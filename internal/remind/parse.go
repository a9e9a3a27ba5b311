package remind

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	inPattern    = regexp.MustCompile(`(?i)remind me (?:to |about |that )?(.+?) in (\d+) (minute|min|hour|hr)s?\b`)
	everyPattern = regexp.MustCompile(`(?i)remind me (?:to |about |that )?(.+?) every (\d+) (minute|min|hour|hr)s?\b`)
)

// ParseRequest recognizes "remind me to X in N minutes" and
// "remind me to X every N hours" phrasings.
func ParseRequest(message string, now time.Time) (text string, schedule Schedule, ok bool) {
	if m := everyPattern.FindStringSubmatch(message); m != nil {
		d, valid := parseDuration(m[2], m[3])
		if !valid {
			return "", Schedule{}, false
		}
		return strings.TrimSpace(m[1]), Schedule{Kind: "every", EveryMs: d.Milliseconds()}, true
	}
	if m := inPattern.FindStringSubmatch(message); m != nil {
		d, valid := parseDuration(m[2], m[3])
		if !valid {
			return "", Schedule{}, false
		}
		return strings.TrimSpace(m[1]), Schedule{Kind: "at", AtMs: now.Add(d).UnixMilli()}, true
	}
	return "", Schedule{}, false
}

func parseDuration(amount, unit string) (time.Duration, bool) {
	n, err := strconv.Atoi(amount)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch strings.ToLower(unit) {
	case "minute", "min":
		return time.Duration(n) * time.Minute, true
	case "hour", "hr":
		return time.Duration(n) * time.Hour, true
	}
	return 0, false
}
