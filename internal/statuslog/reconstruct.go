// Package statuslog turns an agent's append-only availability log into
// hours spent per status for a calendar day.
package statuslog

import (
	"math"
	"slices"
	"time"

	"salesops_backend/internal/agents"
)

// Entry is one availability change.
type Entry struct {
	Status agents.Status `json:"status"`
	At     time.Time     `json:"at"`
}

// Durations maps each availability status to hours, rounded to two decimals.
type Durations map[agents.Status]float64

// zero returns a map with every known status at 0.
func zero() Durations {
	d := make(Durations, len(agents.Statuses))
	for _, st := range agents.Statuses {
		d[st] = 0
	}
	return d
}

// DayBounds returns the start of date's day in loc and the start of the next
// day. The second value is exclusive.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := date.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Reconstruct sums the time between consecutive entries into the earlier
// entry's status. The last entry runs until min(now, dayEnd) unless it is
// LoggedOut. A tail that starts after that bound adds nothing.
func Reconstruct(entries []Entry, dayEnd, now time.Time) Durations {
	out := zero()
	if len(entries) == 0 {
		return out
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int { return a.At.Compare(b.At) })

	raw := make(map[agents.Status]time.Duration, len(agents.Statuses))
	for i := 0; i+1 < len(sorted); i++ {
		if delta := sorted[i+1].At.Sub(sorted[i].At); delta > 0 {
			raw[sorted[i].Status] += delta
		}
	}

	last := sorted[len(sorted)-1]
	if last.Status != agents.StatusLoggedOut {
		until := dayEnd
		if now.Before(until) {
			until = now
		}
		if tail := until.Sub(last.At); tail > 0 {
			raw[last.Status] += tail
		}
	}

	for st, d := range raw {
		out[st] = roundHours(d)
	}
	return out
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
