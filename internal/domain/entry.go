package domain

import "time"

// Entry is one dated body-composition measurement.
type Entry struct {
	ID                string     `json:"id"`
	Date              time.Time  `json:"date"`
	Weight            float64    `json:"weight"`
	BodyFatPercent    float64    `json:"bodyFatPercent"`
	MuscleMassPercent float64    `json:"muscleMassPercent"`
	VisceralFat       int        `json:"visceralFat"`
	WeightUnit        WeightUnit `json:"weightUnit"`
	ImagePath         string     `json:"imagePath,omitempty"`
}

// HasPhoto reports whether a photo file is associated with the entry.
func (e Entry) HasPhoto() bool {
	return e.ImagePath != ""
}

// SameDay reports whether a and b fall on the same calendar day in loc.
// A nil loc compares in time.Local.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
