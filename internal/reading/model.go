package reading

import (
	"sort"
	"time"

	"github.com/lib/pq"
)

// Category of a reading log. The same enum is shared by entries and
// curriculum items.
type Category string

const (
	CategoryEssay Category = "essay"
	CategoryStory Category = "story"
	CategoryPoem  Category = "poem"
)

// Categories returns all valid categories in canonical order.
func Categories() []Category {
	return []Category{CategoryEssay, CategoryStory, CategoryPoem}
}

// Entry is one reading log for one user, one calendar day, one category.
// (user_id, day_key, category) is the natural key and the upsert target;
// the server enforces it with a unique index.
type Entry struct {
	ID     uint64 `gorm:"primaryKey" json:"-"`
	UserID uint64 `gorm:"index;not null" json:"-"`

	DayKey   string   `gorm:"index;not null" json:"day_key"`
	Category Category `gorm:"type:text;not null" json:"category"`

	Title  string `gorm:"type:text;not null" json:"title"`
	Author string `gorm:"type:text;not null;default:''" json:"author,omitempty"`
	URL    string `gorm:"type:text;not null;default:''" json:"url,omitempty"`
	Notes  string `gorm:"type:text;not null;default:''" json:"notes,omitempty"`

	Tags      pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags,omitempty"`
	Rating    int            `gorm:"not null;default:5" json:"rating"`
	WordCount *int           `json:"word_count,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"index;not null;default:now()" json:"updated_at"`
}

// EntryKey is the natural key of an entry within one user's data.
type EntryKey struct {
	DayKey   string
	Category Category
}

// Key returns the entry's natural key.
func (e Entry) Key() EntryKey {
	return EntryKey{DayKey: e.DayKey, Category: e.Category}
}

// Topic is a named grouping of reading-list items. ClientID is assigned by
// the creating device and is the merge key for all sync operations; the
// server stores it as a first-class unique column and never substitutes
// its own row id.
type Topic struct {
	ID     uint64 `gorm:"primaryKey" json:"-"`
	UserID uint64 `gorm:"index;not null" json:"-"`

	ClientID string `gorm:"index;not null" json:"client_id"`
	Name     string `gorm:"type:text;not null" json:"name"`

	Items []TopicItem `gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// TopicItem is one reading-list entry under a Topic.
// FinishedAt is non-null iff Finished is true.
type TopicItem struct {
	ID      uint64 `gorm:"primaryKey" json:"-"`
	TopicID uint64 `gorm:"index;not null" json:"-"`

	ClientID string   `gorm:"index;not null" json:"client_id"`
	Title    string   `gorm:"type:text;not null" json:"title"`
	URL      string   `gorm:"type:text;not null;default:''" json:"url,omitempty"`
	Category Category `gorm:"type:text;not null" json:"category"`
	Author   string   `gorm:"type:text;not null;default:''" json:"author,omitempty"`
	Notes    string   `gorm:"type:text;not null;default:''" json:"notes,omitempty"`

	Tags      pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags,omitempty"`
	WordCount *int           `json:"word_count,omitempty"`

	Finished   bool       `gorm:"not null;default:false" json:"finished"`
	FinishedAt *time.Time `gorm:"type:timestamptz" json:"finished_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"index;not null;default:now()" json:"updated_at"`
}

// Curriculum is the whole-collection exchange shape for topics.
type Curriculum struct {
	Topics []Topic `json:"topics"`
}

// SortItems orders items for presentation: unfinished first, then finished
// by most recent FinishedAt; ties by UpdatedAt, then CreatedAt, newest first.
func SortItems(items []TopicItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Finished != b.Finished {
			return !a.Finished
		}
		if a.Finished && b.Finished {
			at, bt := a.FinishedAt, b.FinishedAt
			if at != nil && bt != nil && !at.Equal(*bt) {
				return at.After(*bt)
			}
			if (at != nil) != (bt != nil) {
				return at != nil
			}
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
