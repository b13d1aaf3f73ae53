// Package achievement maps streaks to levels and badges.
package achievement

import (
	"sort"
	"time"
)

// Level is one of the ranked tiers a learner climbs through by keeping a streak.
type Level struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	MinStreak int    `json:"min_streak"`
	Color     string `json:"color"`
}

// levels is ordered by MinStreak. Keep names stable; clients display them verbatim.
var levels = []Level{
	{Index: 0, Name: "Талмид", Icon: "📖", MinStreak: 0, Color: "#8BC34A"},
	{Index: 1, Name: "Бакки", Icon: "📚", MinStreak: 7, Color: "#03A9F4"},
	{Index: 2, Name: "Хахам", Icon: "🎓", MinStreak: 21, Color: "#9C27B0"},
	{Index: 3, Name: "Рав", Icon: "🕯️", MinStreak: 50, Color: "#FF9800"},
	{Index: 4, Name: "Гаон", Icon: "👑", MinStreak: 100, Color: "#FFC107"},
}

// Levels returns a copy of every tier, lowest first.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// LevelFor returns the highest tier whose MinStreak does not exceed streak.
func LevelFor(streak int) Level {
	for i := len(levels) - 1; i >= 0; i-- {
		if levels[i].MinStreak <= streak {
			return levels[i]
		}
	}
	return levels[0]
}

// NextThreshold returns the MinStreak of the tier above level. The top tier reports its
// own threshold, so progress displays plateau at 100/100.
func NextThreshold(level Level) int {
	next := level.Index + 1
	if next >= len(levels) {
		return levels[len(levels)-1].MinStreak
	}
	if next < 0 {
		next = 0
	}
	return levels[next].MinStreak
}

// LevelProgress summarizes where a streak sits between two tiers.
type LevelProgress struct {
	Level         Level `json:"level"`
	Streak        int   `json:"streak"`
	NextThreshold int   `json:"next_threshold"`
	Percent       int   `json:"progress_percent"`
}

// Progress returns the level for streak together with a 0-100 progress value toward the next tier.
func Progress(streak int) LevelProgress {
	level := LevelFor(streak)
	next := NextThreshold(level)

	percent := 100
	if span := next - level.MinStreak; span > 0 {
		percent = ((streak - level.MinStreak) * 100) / span
	}
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	return LevelProgress{
		Level:         level,
		Streak:        streak,
		NextThreshold: next,
		Percent:       percent,
	}
}

// Badge is a milestone unlocked once a streak reaches Threshold.
type Badge struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Icon      string `json:"icon"`
	Threshold int    `json:"threshold"`
	Unlocked  bool   `json:"unlocked"`
}

// badgeCatalog IDs are persisted by clients; do not renumber.
var badgeCatalog = []Badge{
	{ID: "streak_7", Label: "Неделя", Icon: "🔥", Threshold: 7},
	{ID: "streak_14", Label: "Две недели", Icon: "⭐", Threshold: 14},
	{ID: "streak_21", Label: "Три недели", Icon: "🌟", Threshold: 21},
	{ID: "streak_30", Label: "Месяц", Icon: "🏅", Threshold: 30},
	{ID: "streak_50", Label: "Пятьдесят дней", Icon: "🏆", Threshold: 50},
}

// Badges evaluates every badge against streak. Each badge is independent of the others
// and of the level tiers.
func Badges(streak int) []Badge {
	out := make([]Badge, len(badgeCatalog))
	for i, b := range badgeCatalog {
		b.Unlocked = streak >= b.Threshold
		out[i] = b
	}
	return out
}

// UnlockedBadges returns only the badges reached by streak.
func UnlockedBadges(streak int) []Badge {
	var unlocked []Badge
	for _, b := range Badges(streak) {
		if b.Unlocked {
			unlocked = append(unlocked, b)
		}
	}
	return unlocked
}

// WeekSize is the number of completion dates that earn one weekly badge.
const WeekSize = 7

// weeklyIcons is the fixed icon set awarded for every full group.
var weeklyIcons = [3]string{"🕎", "📜", "✡️"}

// WeeklyBadge is earned for each group of WeekSize completion dates.
type WeeklyBadge struct {
	Number int       `json:"number"`
	Icons  [3]string `json:"icons"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// WeeklyBadges groups the sorted dates greedily from the oldest into non-overlapping runs of
// WeekSize. The dates need not be consecutive or aligned to calendar weeks. A trailing
// partial group earns nothing.
func WeeklyBadges(dates []time.Time) []WeeklyBadge {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	badges := make([]WeeklyBadge, 0, len(sorted)/WeekSize)
	for start := 0; start+WeekSize <= len(sorted); start += WeekSize {
		badges = append(badges, WeeklyBadge{
			Number: len(badges) + 1,
			Icons:  weeklyIcons,
			From:   sorted[start],
			To:     sorted[start+WeekSize-1],
		})
	}
	return badges
}
