package reading

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

var ErrInvalidYear = errors.New("invalid year")

var (
	yearRe    = regexp.MustCompile(`^\d{4}$`)
	yearTagRe = regexp.MustCompile(`^year:(\d{4})$`)
)

// Completion of a single day.
type Completion string

const (
	CompletionNone     Completion = "none"
	CompletionPartial  Completion = "partial"
	CompletionComplete Completion = "complete"
)

// Totals over a set of entries.
type Totals struct {
	TotalWords int      `json:"total_words"`
	RatedCount int      `json:"rated_count"`
	AvgRating  *float64 `json:"avg_rating"`
}

// TypeStats holds per-category totals and averages. WordCount is the number
// of entries that carry a word count, not a word total.
type TypeStats struct {
	Count      int      `json:"count"`
	RatedCount int      `json:"rated_count"`
	AvgRating  *float64 `json:"avg_rating"`
	WordCount  int      `json:"word_count"`
	AvgWords   *float64 `json:"avg_words"`
	TotalWords int      `json:"total_words"`
}

// ChallengeStats tracks complete days (all three categories logged) and the
// streak of consecutive complete days ending at the reference today.
type ChallengeStats struct {
	CompleteDays  int `json:"complete_days"`
	CurrentStreak int `json:"current_streak"`
}

// StatsReport is the aggregation engine's output.
type StatsReport struct {
	ScopeYear      string                 `json:"scope_year,omitempty"`
	TodayKey       string                 `json:"today_key"`
	AvailableYears []string               `json:"available_years"`
	CountsByType   map[Category]int       `json:"counts_by_type"`
	Totals         Totals                 `json:"totals"`
	PerType        map[Category]TypeStats `json:"per_type"`
	Challenge      ChallengeStats         `json:"challenge"`
}

// entryYear resolves an entry's year, preferring a year:YYYY tag over the
// day-key prefix.
func entryYear(e Entry) string {
	for _, t := range e.Tags {
		if m := yearTagRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(t))); m != nil {
			return m[1]
		}
	}
	if len(e.DayKey) >= 4 {
		return e.DayKey[:4]
	}
	return ""
}

// ComputeStats derives all reading statistics from one user's entry set.
// scopeYear restricts every figure except AvailableYears to entries whose
// resolved year matches; the empty string means "all". todayKey anchors the
// streak walk and must come from the one shared Today function.
func ComputeStats(entries []Entry, scopeYear, todayKey string) (*StatsReport, error) {
	if scopeYear != "" && !yearRe.MatchString(scopeYear) {
		return nil, ErrInvalidYear
	}
	if _, err := ParseDayKey(todayKey); err != nil {
		return nil, err
	}

	report := &StatsReport{
		ScopeYear:    scopeYear,
		TodayKey:     todayKey,
		CountsByType: map[Category]int{},
		PerType:      map[Category]TypeStats{},
	}
	for _, c := range Categories() {
		report.CountsByType[c] = 0
		report.PerType[c] = TypeStats{}
	}

	years := map[string]struct{}{}
	ratingSum := 0
	perRatingSum := map[Category]int{}
	perWordSum := map[Category]int{}
	byDay := map[string]map[Category]struct{}{}

	for _, e := range entries {
		if y := entryYear(e); y != "" {
			years[y] = struct{}{}
		}
		if scopeYear != "" && entryYear(e) != scopeYear {
			continue
		}

		report.CountsByType[e.Category]++
		ts := report.PerType[e.Category]
		ts.Count++

		if e.Rating >= 1 {
			report.Totals.RatedCount++
			ratingSum += e.Rating
			ts.RatedCount++
			perRatingSum[e.Category] += e.Rating
		}
		if e.WordCount != nil {
			report.Totals.TotalWords += *e.WordCount
			ts.WordCount++
			ts.TotalWords += *e.WordCount
			perWordSum[e.Category] += *e.WordCount
		}
		report.PerType[e.Category] = ts

		cats, ok := byDay[e.DayKey]
		if !ok {
			cats = map[Category]struct{}{}
			byDay[e.DayKey] = cats
		}
		cats[e.Category] = struct{}{}
	}

	if report.Totals.RatedCount > 0 {
		avg := float64(ratingSum) / float64(report.Totals.RatedCount)
		report.Totals.AvgRating = &avg
	}
	for c, ts := range report.PerType {
		if ts.RatedCount > 0 {
			avg := float64(perRatingSum[c]) / float64(ts.RatedCount)
			ts.AvgRating = &avg
		}
		if ts.WordCount > 0 {
			avg := float64(perWordSum[c]) / float64(ts.WordCount)
			ts.AvgWords = &avg
		}
		report.PerType[c] = ts
	}

	for y := range years {
		report.AvailableYears = append(report.AvailableYears, y)
	}
	// Fixed-width YYYY, so lexicographic descending is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(report.AvailableYears)))

	for _, cats := range byDay {
		if dayComplete(cats) {
			report.Challenge.CompleteDays++
		}
	}
	report.Challenge.CurrentStreak = streakFrom(byDay, todayKey)

	return report, nil
}

// DayCompletion reports whether dayKey has no entries, some categories, or
// all three.
func DayCompletion(entries []Entry, dayKey string) Completion {
	cats := map[Category]struct{}{}
	for _, e := range entries {
		if e.DayKey == dayKey {
			cats[e.Category] = struct{}{}
		}
	}
	switch {
	case len(cats) == 0:
		return CompletionNone
	case dayComplete(cats):
		return CompletionComplete
	default:
		return CompletionPartial
	}
}

func dayComplete(cats map[Category]struct{}) bool {
	for _, c := range Categories() {
		if _, ok := cats[c]; !ok {
			return false
		}
	}
	return true
}

// streakFrom walks backward one calendar day at a time starting at today
// (inclusive), counting consecutive complete days. An incomplete today
// yields zero.
func streakFrom(byDay map[string]map[Category]struct{}, todayKey string) int {
	day, err := ParseDayKey(todayKey)
	if err != nil {
		return 0
	}
	streak := 0
	for {
		cats, ok := byDay[day.Key()]
		if !ok || !dayComplete(cats) {
			return streak
		}
		streak++
		day = day.AddDays(-1)
	}
}
