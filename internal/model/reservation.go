// Package model defines the domain types shared across the booking service:
// reservations, rooms and their equipment options.  All reservation fields are
// plain strings because the backing store is a spreadsheet-style table whose
// cells carry no richer types.
package model

import (
	"sort"
	"strings"
	"time"
)

// Layouts used when parsing and formatting reservation fields.  Dates are
// stored as ISO YYYY-MM-DD strings, times as HH:MM and creation timestamps
// as a full date-time, matching the worksheet columns.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
	CreatedAtLayout = "2006-01-02 15:04:05"
)

// Bookable hours.  A slot starts on the hour and lasts exactly one hour;
// the last slot of the day starts at 19:00.
const (
	FirstSlotHour = 8
	LastSlotHour  = 19
)

// Reservation is one booked one-hour slot.  EndTime is always StartTime plus
// one hour and is computed at commit time, never supplied by a caller.
// CreatedAt is informational only and plays no part in conflict decisions.
type Reservation struct {
	Researcher string `json:"researcher"`
	Equipment  string `json:"equipment"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CreatedAt  string `json:"created_at"`
}

// ReservationRef identifies an existing reservation by its content.  The
// backing store has no primary key, so cancellation locates its target by
// exact field match instead.
type ReservationRef struct {
	Researcher string `json:"researcher"`
	Equipment  string `json:"equipment"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
}

// Matches reports whether the reservation carries exactly the referenced
// researcher, equipment, date and start time.
func (ref ReservationRef) Matches(r Reservation) bool {
	return r.Researcher == ref.Researcher &&
		r.Equipment == ref.Equipment &&
		r.Date == ref.Date &&
		r.StartTime == ref.StartTime
}

// Slots returns the bookable start times for one day, "08:00" through "19:00".
func Slots() []string {
	out := make([]string, 0, LastSlotHour-FirstSlotHour+1)
	for h := FirstSlotHour; h <= LastSlotHour; h++ {
		t := time.Date(0, 1, 1, h, 0, 0, 0, time.UTC)
		out = append(out, t.Format(TimeLayout))
	}
	return out
}

// IsSlot reports whether s is one of the bookable start times.
func IsSlot(s string) bool {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return t.Minute() == 0 && t.Hour() >= FirstSlotHour && t.Hour() <= LastSlotHour
}

// EndOfSlot returns the end time of the slot beginning at start, i.e. start
// plus one hour.  It returns an error when start is not a valid HH:MM string.
func EndOfSlot(start string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(start))
	if err != nil {
		return "", err
	}
	return t.Add(time.Hour).Format(TimeLayout), nil
}

// SortByDate orders reservations by date, then start time, then researcher.
// The backing collection is unordered; sorting here keeps every rendering of
// it deterministic.
func SortByDate(set []Reservation) {
	sort.SliceStable(set, func(i, j int) bool {
		if set[i].Date != set[j].Date {
			return set[i].Date < set[j].Date
		}
		if set[i].StartTime != set[j].StartTime {
			return set[i].StartTime < set[j].StartTime
		}
		return set[i].Researcher < set[j].Researcher
	})
}
