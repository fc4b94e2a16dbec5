package lifecycle

import (
	"regexp"
	"strings"
	"time"
)

// Phase is what a feed's status text says about a game
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseLive
	PhaseFinal
)

func (p Phase) String() string {
	switch p {
	case PhaseLive:
		return "live"
	case PhaseFinal:
		return "final"
	default:
		return "unknown"
	}
}

// activePattern matches in-game wording from both nba.com and ESPN:
// "Q3 5:32", "3rd Qtr", "7:12 - 3rd Quarter", "Halftime", "OT", "2OT",
// "End of 1st Quarter". Bare ordinals are left out because pre-game text
// such as "Sun, November 30th at 10:00 PM EST" carries them too.
var activePattern = regexp.MustCompile(`(?i)\b(q[1-4]|[1-4](st|nd|rd|th)\s*(qtr|quarter)|half(time)?|in progress|\d*ot|overtime|end of|start of)\b`)

// ClassifyStatus maps status text, plus the provider state when known, to a Phase
func ClassifyStatus(text, state string) Phase {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "final") {
		return PhaseFinal
	}
	if strings.EqualFold(strings.TrimSpace(state), "in") || activePattern.MatchString(text) {
		return PhaseLive
	}
	return PhaseUnknown
}

// InLiveWindow reports whether now lies in [start, start+window]
func InLiveWindow(now, start time.Time, window time.Duration) bool {
	if start.IsZero() {
		return false
	}
	return !now.Before(start) && !now.After(start.Add(window))
}
