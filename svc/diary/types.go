// Package diary stores journal entries and the people mentioned in them,
// and computes the aggregates the statistics endpoints serve.
package diary

import "time"

// Entry is one journal entry. Mood is a 1-10 self-reported score; 0 means
// the user did not rate the day.
type Entry struct {
	ID        string    `bson:"_id" json:"id"`
	UID       string    `bson:"uid" json:"uid"`
	Date      time.Time `bson:"date" json:"date"`
	Text      string    `bson:"text" json:"text"`
	Mood      int       `bson:"mood,omitempty" json:"mood,omitempty"`
	People    []string  `bson:"people,omitempty" json:"people,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Person is someone the user mentions in their journal. Mentions counts how
// many entries reference them.
type Person struct {
	ID       string `bson:"_id" json:"id"`
	UID      string `bson:"uid" json:"uid"`
	Name     string `bson:"name" json:"name"`
	Mentions int64  `bson:"mentions" json:"mentions"`
}

// MoodPoint is one day's average mood.
type MoodPoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Score float64 `json:"score"`
}

// MoodStats aggregates mood over a date range.
type MoodStats struct {
	Average float64     `json:"average"`
	Days    []MoodPoint `json:"days"`
}
