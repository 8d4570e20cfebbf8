package statuslog

import (
	"testing"
	"time"

	"salesops_backend/internal/agents"
)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func TestReconstructWorkdayWithLunch(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, end := DayBounds(day, time.UTC)
	entries := []Entry{
		{Status: agents.StatusAvailable, At: at(day, 8, 0)},
		{Status: agents.StatusLunch, At: at(day, 12, 0)},
		{Status: agents.StatusAvailable, At: at(day, 13, 0)},
		{Status: agents.StatusLoggedOut, At: at(day, 18, 0)},
	}

	got := Reconstruct(entries, end, at(day, 18, 30))

	// 08:00-12:00 and 13:00-18:00.
	if got[agents.StatusAvailable] != 9 {
		t.Fatalf("Available = %v, want 9", got[agents.StatusAvailable])
	}
	if got[agents.StatusLunch] != 1 {
		t.Fatalf("Lunch = %v, want 1", got[agents.StatusLunch])
	}
	for _, st := range []agents.Status{agents.StatusOnBreak, agents.StatusMeeting, agents.StatusLoggedOut} {
		if got[st] != 0 {
			t.Fatalf("%s = %v, want 0", st, got[st])
		}
	}
}

func TestReconstructEmptyDayIsAllZero(t *testing.T) {
	got := Reconstruct(nil, time.Now(), time.Now())
	if len(got) != len(agents.Statuses) {
		t.Fatalf("expected every status present, got %v", got)
	}
	for st, h := range got {
		if h != 0 {
			t.Fatalf("%s = %v, want 0", st, h)
		}
	}
}

func TestReconstructOpenTailCountsUntilNow(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, end := DayBounds(day, time.UTC)
	entries := []Entry{{Status: agents.StatusMeeting, At: at(day, 9, 0)}}

	got := Reconstruct(entries, end, at(day, 10, 15))
	if got[agents.StatusMeeting] != 1.25 {
		t.Fatalf("Meeting = %v, want 1.25", got[agents.StatusMeeting])
	}
}

func TestReconstructPastDayCapsAtEndOfDay(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, end := DayBounds(day, time.UTC)
	entries := []Entry{{Status: agents.StatusAvailable, At: at(day, 20, 0)}}

	got := Reconstruct(entries, end, day.AddDate(0, 0, 5))
	if got[agents.StatusAvailable] != 4 {
		t.Fatalf("Available = %v, want 4", got[agents.StatusAvailable])
	}
}

func TestReconstructZeroSpanAndTailAfterNow(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, end := DayBounds(day, time.UTC)
	entries := []Entry{
		{Status: agents.StatusAvailable, At: at(day, 9, 0)},
		{Status: agents.StatusOnBreak, At: at(day, 9, 0)},
		{Status: agents.StatusAvailable, At: at(day, 11, 0)},
	}

	got := Reconstruct(entries, end, at(day, 10, 0))
	if got[agents.StatusAvailable] != 0 {
		t.Fatalf("Available = %v, want 0", got[agents.StatusAvailable])
	}
	if got[agents.StatusOnBreak] != 2 {
		t.Fatalf("OnBreak = %v, want 2", got[agents.StatusOnBreak])
	}
}

func TestReconstructSortsEntries(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, end := DayBounds(day, time.UTC)
	entries := []Entry{
		{Status: agents.StatusLoggedOut, At: at(day, 17, 0)},
		{Status: agents.StatusAvailable, At: at(day, 9, 0)},
	}

	got := Reconstruct(entries, end, at(day, 23, 0))
	if got[agents.StatusAvailable] != 8 {
		t.Fatalf("Available = %v, want 8", got[agents.StatusAvailable])
	}
}

func TestDayBoundsUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	start, end := DayBounds(time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC), loc)
	if start.Hour() != 0 || start.Location() != loc {
		t.Fatalf("unexpected start %v", start)
	}
	// DST starts on 2026-03-08 in New York, so the day is 23 hours long.
	if end.Sub(start) != 23*time.Hour {
		t.Fatalf("expected 23h day, got %v", end.Sub(start))
	}
}
