// Package streak computes daily learning streaks from a CompletionMap.
//
// Shabbat is a free day: a missing Saturday never breaks a streak, and it never
// adds to one either.
package streak

import "time"

// Stats is the derived streak state of a user. It is never stored on its own.
type Stats struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Compute returns the current streak and the ratcheted maximum for m.
func Compute(m CompletionMap, storedMax int, today time.Time) Stats {
	return Stats{
		Current: Current(m, today),
		Max:     MaxWithHistory(storedMax, m, today),
	}
}

// Current walks backward from today and counts present days. An absent Saturday is
// skipped; the first absent weekday ends the walk.
func Current(m CompletionMap, today time.Time) int {
	dates := m.Dates()
	if len(dates) == 0 {
		return 0
	}
	earliest := dates[0]

	streak := 0
	for day := civilDay(today); !day.Before(earliest); day = day.AddDate(0, 0, -1) {
		if m.Has(DateKey(day)) {
			streak++
			continue
		}
		if day.Weekday() == time.Saturday {
			continue
		}
		break
	}
	return streak
}

// Max returns the longest run of present days. Two dates belong to the same run when
// they are adjacent or only Saturdays lie between them.
func Max(m CompletionMap) int {
	dates := m.Dates()
	if len(dates) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if continues(dates[i-1], dates[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// MaxWithHistory never lowers a previously stored maximum: historical progress may
// predate the completion map we still have.
func MaxWithHistory(stored int, m CompletionMap, today time.Time) int {
	best := stored
	if v := Max(m); v > best {
		best = v
	}
	if v := Current(m, today); v > best {
		best = v
	}
	return best
}

func continues(prev, next time.Time) bool {
	for day := prev.AddDate(0, 0, 1); day.Before(next); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != time.Saturday {
			return false
		}
	}
	return true
}

// civilDay maps t to UTC midnight of its calendar date, matching ParseDate.
func civilDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
