package reading

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"essay", CategoryEssay, false},
		{"  Story ", CategoryStory, false},
		{"POEM", CategoryPoem, false},
		{"novel", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidCategory, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Fiction ", "fiction", "", "year:2026", "FICTION", "long-read"})
	assert.Equal(t, []string{"Fiction", "year:2026", "long-read"}, got)
}

func TestNormalizeTagsIdempotent(t *testing.T) {
	in := []string{"a", " A", "b", "", "B ", "c"}
	once := NormalizeTags(in)
	assert.Equal(t, once, NormalizeTags(once))
}

func TestNormalizeTagsEmpty(t *testing.T) {
	assert.Nil(t, NormalizeTags(nil))
	assert.Nil(t, NormalizeTags([]string{"", "  "}))
}

func TestParseRating(t *testing.T) {
	assert.Equal(t, 3, ParseRating("3"))
	assert.Equal(t, 1, ParseRating("-2"))
	assert.Equal(t, 5, ParseRating("9"))
	assert.Equal(t, 5, ParseRating("five"))
	assert.Equal(t, 5, ParseRating(""))
}

func TestParseWordCount(t *testing.T) {
	wc := ParseWordCount("1200")
	require.NotNil(t, wc)
	assert.Equal(t, 1200, *wc)

	assert.Nil(t, ParseWordCount(""))
	assert.Nil(t, ParseWordCount("lots"))
	assert.Nil(t, ParseWordCount("-5"))
}

func TestNormalizeEntry(t *testing.T) {
	neg := -10
	e := Entry{
		DayKey:   " 2026-03-01 ",
		Category: " Essay",
		Title:    "  The Crack-Up  ",
		Tags:     []string{"fitzgerald", "Fitzgerald"},
		Rating:   8,
		WordCount: &neg,
	}
	require.NoError(t, NormalizeEntry(&e))
	assert.Equal(t, "2026-03-01", e.DayKey)
	assert.Equal(t, CategoryEssay, e.Category)
	assert.Equal(t, "The Crack-Up", e.Title)
	assert.Equal(t, []string{"fitzgerald"}, []string(e.Tags))
	assert.Equal(t, 5, e.Rating)
	assert.Nil(t, e.WordCount)
}

func TestNormalizeEntryRejectsUnusable(t *testing.T) {
	assert.Error(t, NormalizeEntry(&Entry{DayKey: "2026-03-01", Category: "essay"}))
	assert.Error(t, NormalizeEntry(&Entry{DayKey: "not-a-day", Category: "essay", Title: "x"}))
	assert.Error(t, NormalizeEntry(&Entry{DayKey: "2026-03-01", Category: "screenplay", Title: "x"}))
}

func TestClientIDs(t *testing.T) {
	a, b := NewTopicID(), NewTopicID()
	assert.True(t, strings.HasPrefix(a, "top-"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(NewItemID(), "itm-"))
}
