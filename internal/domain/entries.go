package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinRating     = 0
	MaxRating     = 100
	DefaultRating = 50

	// MaxDimensionNameRunes bounds CustomDimension.Name after trimming.
	MaxDimensionNameRunes = 60

	// DateLayout is the entry_date format.
	DateLayout = "2006-01-02"
)

var (
	ErrRatingOutOfRange     = errors.New("rating out of range")
	ErrInvalidDimensionName = errors.New("invalid dimension name")
	ErrInvalidDate          = errors.New("invalid date")
)

// DateAt formats t as a calendar date in loc.
func DateAt(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate checks that s is a YYYY-MM-DD date and returns it unchanged.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", ErrInvalidDate
	}
	return s, nil
}

// ValidRating reports whether v is within [MinRating, MaxRating].
func ValidRating(v int) bool { return v >= MinRating && v <= MaxRating }

// Ratings are the four fixed metrics of a check-in.
type Ratings struct {
	HorninessLevel int `json:"horniness_level" gorm:"not null;check:horniness_level BETWEEN 0 AND 100"`
	GeneralFeeling int `json:"general_feeling" gorm:"not null;check:general_feeling BETWEEN 0 AND 100"`
	SleepQuality   int `json:"sleep_quality"   gorm:"not null;check:sleep_quality BETWEEN 0 AND 100"`
	EmotionalState int `json:"emotional_state" gorm:"not null;check:emotional_state BETWEEN 0 AND 100"`
}

// DefaultRatings returns all four metrics at DefaultRating.
func DefaultRatings() Ratings {
	return Ratings{DefaultRating, DefaultRating, DefaultRating, DefaultRating}
}

// Validate rejects any metric outside 0..100.
func (r Ratings) Validate() error {
	for _, v := range []int{r.HorninessLevel, r.GeneralFeeling, r.SleepQuality, r.EmotionalState} {
		if !ValidRating(v) {
			return ErrRatingOutOfRange
		}
	}
	return nil
}

// DailyEntry is one immutable check-in. Several may share a date; the one
// with the latest CreatedAt is that day's value.
type DailyEntry struct {
	ID        string `json:"id"         gorm:"type:char(36);primaryKey"`
	ProfileID string `json:"profile_id" gorm:"type:char(36);not null;index:idx_entries_profile_date,priority:1"`
	EntryDate string `json:"entry_date" gorm:"type:varchar(10);not null;index:idx_entries_profile_date,priority:2"`
	Ratings   `gorm:"embedded"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_entries_profile_date,priority:3"`

	CustomValues []CustomDimensionEntry `json:"custom_values" gorm:"foreignKey:EntryID;references:ID"`
}

// TableName returns the database table name for DailyEntry.
func (DailyEntry) TableName() string { return "daily_entries" }

// NewDailyEntryID returns a version 7 UUID. Its text form sorts in creation
// order, monotonic within the process even inside one millisecond, so entries
// sharing created_at still order by id.
func NewDailyEntryID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewDailyEntry validates the ratings and date.
func NewDailyEntry(profileID, entryDate string, r Ratings) (*DailyEntry, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	date, err := ParseDate(entryDate)
	if err != nil {
		return nil, err
	}
	return &DailyEntry{ID: NewDailyEntryID(), ProfileID: profileID, EntryDate: date, Ratings: r}, nil
}

// CustomDimension is a couple-scoped rating axis named by one of the partners.
type CustomDimension struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	CoupleID  string    `json:"couple_id"  gorm:"type:char(36);not null;index:idx_dimensions_couple,priority:1"`
	CreatedBy string    `json:"created_by" gorm:"type:char(36);not null"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_dimensions_couple,priority:2"`

	Couple Couple `json:"-" gorm:"foreignKey:CoupleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CustomDimension.
func (CustomDimension) TableName() string { return "custom_dimensions" }

// NewCustomDimension trims name and enforces 1..MaxDimensionNameRunes.
func NewCustomDimension(coupleID, createdBy, name string) (*CustomDimension, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxDimensionNameRunes {
		return nil, ErrInvalidDimensionName
	}
	return &CustomDimension{ID: uuid.NewString(), CoupleID: coupleID, CreatedBy: createdBy, Name: name}, nil
}

// CustomDimensionEntry is the value of one dimension for one entry.
type CustomDimensionEntry struct {
	ID          string `json:"id"           gorm:"type:char(36);primaryKey"`
	DimensionID string `json:"dimension_id" gorm:"type:char(36);not null;uniqueIndex:ux_dimension_entry,priority:1"`
	EntryID     string `json:"entry_id"     gorm:"type:char(36);not null;index;uniqueIndex:ux_dimension_entry,priority:2"`
	Value       int    `json:"value"        gorm:"not null;check:value BETWEEN 0 AND 100"`

	Dimension CustomDimension `json:"-" gorm:"foreignKey:DimensionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CustomDimensionEntry.
func (CustomDimensionEntry) TableName() string { return "custom_dimension_entries" }

// NewCustomDimensionEntry validates the value range.
func NewCustomDimensionEntry(dimensionID, entryID string, value int) (*CustomDimensionEntry, error) {
	if !ValidRating(value) {
		return nil, ErrRatingOutOfRange
	}
	return &CustomDimensionEntry{ID: uuid.NewString(), DimensionID: dimensionID, EntryID: entryID, Value: value}, nil
}
