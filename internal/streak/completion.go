package streak

import (
	"sort"
	"time"
)

// DateLayout is the key format used by CompletionMap.
const DateLayout = "2006-01-02"

// CompletionMap records which content sections were finished on each calendar day.
// Keys are ISO dates (YYYY-MM-DD); a day with no sections counts as absent.
type CompletionMap map[string][]string

// DateKey formats t as a CompletionMap key using t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a CompletionMap key into a UTC midnight time.
func ParseDate(key string) (time.Time, error) {
	return time.Parse(DateLayout, key)
}

// Add marks section as completed on date. It reports whether the section was new for that day.
func (m CompletionMap) Add(date, section string) bool {
	for _, s := range m[date] {
		if s == section {
			return false
		}
	}
	m[date] = append(m[date], section)
	return true
}

// Has reports whether at least one section was completed on date.
func (m CompletionMap) Has(date string) bool {
	return len(m[date]) > 0
}

// Sections returns a copy of the sections completed on date.
func (m CompletionMap) Sections(date string) []string {
	src := m[date]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Dates returns every present, well-formed date in ascending order.
func (m CompletionMap) Dates() []time.Time {
	dates := make([]time.Time, 0, len(m))
	for key, sections := range m {
		if len(sections) == 0 {
			continue
		}
		day, err := ParseDate(key)
		if err != nil {
			continue
		}
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Merge adds every section of other into m.
func (m CompletionMap) Merge(other CompletionMap) {
	for date, sections := range other {
		for _, s := range sections {
			m.Add(date, s)
		}
	}
}

// Clone returns a deep copy of m.
func (m CompletionMap) Clone() CompletionMap {
	out := make(CompletionMap, len(m))
	for date, sections := range m {
		out[date] = append([]string(nil), sections...)
	}
	return out
}
