// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// Actions carried by BookingEvent.
const (
	ActionConfirmed = "confirmed"
	ActionCancelled = "cancelled"
)

// BookingEvent is published whenever a reservation is committed or
// cancelled.  It contains enough information for downstream consumers to
// log or notify without reading the backing worksheet.
type BookingEvent struct {
	Action     string `json:"action"`
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name"`
	Researcher string `json:"researcher"`
	Equipment  string `json:"equipment"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	OccurredAt string `json:"occurred_at"`
}
