package reading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrInvalidCategory = errors.New("invalid category")

// ParseCategory trims and lowercases raw and accepts only the three known
// categories.
func ParseCategory(raw string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case CategoryEssay, CategoryStory, CategoryPoem:
		return c, nil
	default:
		return "", ErrInvalidCategory
	}
}

// NormalizeTags trims each tag, drops empties, and de-duplicates
// case-insensitively keeping the first occurrence's casing and position.
// Idempotent: NormalizeTags(NormalizeTags(x)) == NormalizeTags(x).
func NormalizeTags(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ClampRating clamps n to [1,5].
func ClampRating(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// ParseRating parses raw as an integer rating. Non-numeric input defaults
// to 5; out-of-range values clamp to the nearest bound.
func ParseRating(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 5
	}
	return ClampRating(n)
}

// ParseWordCount parses raw as a non-negative word count. Empty,
// non-numeric, and negative input all yield nil (absent).
func ParseWordCount(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// NormalizeEntry validates and canonicalizes an entry in place: category,
// tags, rating, word count, trimmed title. Returns an error when the entry
// is unusable (missing day key, category, or title).
func NormalizeEntry(e *Entry) error {
	e.DayKey = strings.TrimSpace(e.DayKey)
	if _, err := ParseDayKey(e.DayKey); err != nil {
		return fmt.Errorf("entry day key: %w", err)
	}
	c, err := ParseCategory(string(e.Category))
	if err != nil {
		return err
	}
	e.Category = c
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return errors.New("entry title required")
	}
	e.Author = strings.TrimSpace(e.Author)
	e.URL = strings.TrimSpace(e.URL)
	e.Tags = NormalizeTags(e.Tags)
	e.Rating = ClampRating(e.Rating)
	if e.WordCount != nil && *e.WordCount < 0 {
		e.WordCount = nil
	}
	return nil
}

// NewTopicID generates a stable client id for a locally created topic.
// The id is the merge key for all future sync operations on the record and
// must never be regenerated.
func NewTopicID() string {
	return mustID("top")
}

// NewItemID generates a stable client id for a locally created topic item.
func NewItemID() string {
	return mustID("itm")
}

func mustID(prefix string) string {
	id, err := gonanoid.New()
	if err != nil {
		panic(fmt.Sprintf("generate id: %v", err))
	}
	return prefix + "-" + id
}
