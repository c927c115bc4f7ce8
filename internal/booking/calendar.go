package booking

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/collectiveminds/lab-booking/internal/model"
)

// CalendarEvent is one reservation projected for the calendar widget.
// Start and end are ISO date-times; the color follows the room's color map
// by equipment class.
type CalendarEvent struct {
	Title      string `json:"title"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Color      string `json:"color"`
	Researcher string `json:"researcher"`
	Equipment  string `json:"equipment"`
	Time       string `json:"time"`
}

// Events projects a reservation set into calendar events, sorted by date and
// start time.
func Events(room *model.Room, set []model.Reservation) []CalendarEvent {
	sorted := append([]model.Reservation(nil), set...)
	model.SortByDate(sorted)
	out := make([]CalendarEvent, 0, len(sorted))
	for _, r := range sorted {
		color := room.Color(r.Equipment)
		out = append(out, CalendarEvent{
			Title:      fmt.Sprintf("%s — %s", r.Researcher, r.Equipment),
			Start:      fmt.Sprintf("%sT%s", r.Date, r.StartTime),
			End:        fmt.Sprintf("%sT%s", r.Date, r.EndTime),
			Color:      color,
			Researcher: r.Researcher,
			Equipment:  r.Equipment,
			Time:       fmt.Sprintf("%s - %s", r.StartTime, r.EndTime),
		})
	}
	return out
}

// CalendarEvents loads a room's reservations and projects them.  A store
// failure degrades to an empty event list with the error passed back so the
// caller can surface a warning instead of failing the whole page.
func (s *Service) CalendarEvents(ctx context.Context, roomID string) ([]CalendarEvent, error) {
	room, err := s.Room(roomID)
	if err != nil {
		return nil, err
	}
	set, err := s.repo.Load(ctx, room)
	if err != nil {
		return []CalendarEvent{}, &StoreError{Op: "read", Err: err}
	}
	return Events(room, set), nil
}

// ICSFeed renders the room's reservations as an iCalendar document, one
// VEVENT per reservation, for subscription from desktop calendar clients.
func (s *Service) ICSFeed(ctx context.Context, roomID string) (string, error) {
	room, err := s.Room(roomID)
	if err != nil {
		return "", err
	}
	set, err := s.repo.Load(ctx, room)
	if err != nil {
		return "", &StoreError{Op: "read", Err: err}
	}
	sorted := append([]model.Reservation(nil), set...)
	model.SortByDate(sorted)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//Collective Minds Lab//Room Booking//EN")
	now := s.now().UTC()
	for _, r := range sorted {
		start, err := time.Parse(model.DateLayout+" "+model.TimeLayout, r.Date+" "+r.StartTime)
		if err != nil {
			continue // rows with unparseable slots are display-only noise
		}
		end, err := time.Parse(model.DateLayout+" "+model.TimeLayout, r.Date+" "+r.EndTime)
		if err != nil {
			end = start.Add(time.Hour)
		}
		ev := cal.AddEvent(eventUID(room, r))
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(fmt.Sprintf("%s — %s", r.Researcher, r.Equipment))
		ev.SetLocation(fmt.Sprintf("Room %s (%s)", room.Number, room.Name))
		ev.SetDescription(fmt.Sprintf("Booked by %s", r.Researcher))
	}
	return cal.Serialize(), nil
}

// eventUID derives a stable identifier from the reservation's content so
// calendar clients can match events across refreshes.
func eventUID(room *model.Room, r model.Reservation) string {
	sum := sha1.Sum([]byte(room.Worksheet + "|" + r.Date + "|" + r.StartTime + "|" + r.Equipment + "|" + r.Researcher))
	return fmt.Sprintf("%x@lab-booking", sum)
}
