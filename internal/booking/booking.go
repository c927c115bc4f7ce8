package booking

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/collectiveminds/lab-booking/internal/config"
	"github.com/collectiveminds/lab-booking/internal/model"
	"github.com/collectiveminds/lab-booking/internal/queue"
	"github.com/collectiveminds/lab-booking/internal/repository"
)

// EventPublisher pushes booking events to the message broker.  Publishing is
// best effort: the service logs failures and never fails a booking over one.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Proposal is a booking request as collected by the presentation layer: a
// researcher, an equipment label from the room's option list, an ISO date
// and an hourly start time.  The end time is computed, never supplied.
type Proposal struct {
	Researcher string `json:"researcher"`
	Equipment  string `json:"equipment"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
}

// Service wires the room catalogue, the reservation accessor and the event
// publisher into the booking operations.  It has no mutable state of its
// own; the only shared state is the backing collection behind the accessor.
type Service struct {
	rooms  *config.RoomCatalogue
	repo   *repository.ReservationRepo
	events EventPublisher
	now    func() time.Time
}

// NewService constructs the booking service.  events may be nil, which
// disables publishing.
func NewService(rooms *config.RoomCatalogue, repo *repository.ReservationRepo, events EventPublisher) *Service {
	if rooms == nil || repo == nil {
		panic("nil dependency passed to NewService")
	}
	return &Service{rooms: rooms, repo: repo, events: events, now: time.Now}
}

// Room resolves a catalogue room or reports ErrUnknownRoom.
func (s *Service) Room(id string) (*model.Room, error) {
	room := s.rooms.Room(id)
	if room == nil {
		return nil, ErrUnknownRoom
	}
	return room, nil
}

// HasConflict decides whether a proposed (date, start, equipment) triple
// collides with the existing set.  A reservation collides when it occupies
// the same date and start slot and either carries the same equipment label,
// or either side is a combined variant: a combined request needs every
// sub-resource, and an existing combined booking already holds them all.
// Stored labels outside the room's option list resolve as non-combined.
// Pure and deterministic; no side effects.
func HasConflict(room *model.Room, set []model.Reservation, date, start string, equipment model.EquipmentOption) bool {
	for _, r := range set {
		if r.Date != date || r.StartTime != start {
			continue
		}
		if r.Equipment == equipment.Label || equipment.Combined() {
			return true
		}
		if booked, ok := room.Option(r.Equipment); ok && booked.Combined() {
			return true
		}
	}
	return false
}

// Book validates the proposal, re-loads the authoritative reservation set,
// re-checks the conflict rule against it and, only then, appends the new
// reservation and overwrites the whole backing collection.  Any failure
// before the overwrite leaves the collection untouched.  The caller-visible
// snapshot is never trusted: the fresh load immediately before the write is
// what keeps the race window small.
func (s *Service) Book(ctx context.Context, roomID string, p Proposal) (model.Reservation, error) {
	var zero model.Reservation
	room, err := s.Room(roomID)
	if err != nil {
		return zero, err
	}
	p.Researcher = strings.TrimSpace(p.Researcher)
	if p.Researcher == "" {
		return zero, &ValidationError{Field: "researcher", Reason: "name must not be empty"}
	}
	equipment, ok := room.Option(p.Equipment)
	if !ok {
		return zero, &ValidationError{Field: "equipment", Reason: "not an option for this room"}
	}
	date, err := time.Parse(model.DateLayout, strings.TrimSpace(p.Date))
	if err != nil {
		return zero, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	p.Date = date.Format(model.DateLayout)
	p.StartTime = strings.TrimSpace(p.StartTime)
	if !model.IsSlot(p.StartTime) {
		return zero, &ValidationError{Field: "start_time", Reason: "not a bookable slot"}
	}
	end, err := model.EndOfSlot(p.StartTime)
	if err != nil {
		return zero, &ValidationError{Field: "start_time", Reason: "must be HH:MM"}
	}

	set, err := s.repo.LoadFresh(ctx, room)
	if err != nil {
		return zero, &StoreError{Op: "read", Err: err}
	}
	if HasConflict(room, set, p.Date, p.StartTime, equipment) {
		return zero, &ConflictError{Equipment: equipment.Label, Date: p.Date, StartTime: p.StartTime}
	}

	resv := model.Reservation{
		Researcher: p.Researcher,
		Equipment:  equipment.Label,
		Date:       p.Date,
		StartTime:  p.StartTime,
		EndTime:    end,
		CreatedAt:  s.now().Format(model.CreatedAtLayout),
	}
	if err := s.repo.Replace(ctx, room, append(set, resv)); err != nil {
		return zero, &StoreError{Op: "overwrite", Err: err}
	}
	s.publish(ctx, queue.ActionConfirmed, room, resv)
	return resv, nil
}

// Cancel removes one reservation identified by its content.  The target is
// located in a freshly loaded set; if it vanished (already cancelled by a
// concurrent session) the operation fails with NotFoundError rather than
// silently succeeding.  Exactly one row is removed and all others are
// written back unchanged.
func (s *Service) Cancel(ctx context.Context, roomID string, ref model.ReservationRef) error {
	room, err := s.Room(roomID)
	if err != nil {
		return err
	}
	set, err := s.repo.LoadFresh(ctx, room)
	if err != nil {
		return &StoreError{Op: "read", Err: err}
	}
	idx := -1
	for i, r := range set {
		if ref.Matches(r) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &NotFoundError{Ref: ref}
	}
	removed := set[idx]
	remainder := append(set[:idx:idx], set[idx+1:]...)
	if err := s.repo.Replace(ctx, room, remainder); err != nil {
		return &StoreError{Op: "overwrite", Err: err}
	}
	s.publish(ctx, queue.ActionCancelled, room, removed)
	return nil
}

// List returns the room's reservations sorted by date and start time.  It
// serves from the short-lived cache when possible.
func (s *Service) List(ctx context.Context, roomID string) ([]model.Reservation, error) {
	room, err := s.Room(roomID)
	if err != nil {
		return nil, err
	}
	set, err := s.repo.Load(ctx, room)
	if err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	out := make([]model.Reservation, 0, len(set))
	out = append(out, set...)
	model.SortByDate(out)
	return out, nil
}

// PurgeBefore removes reservations dated strictly before cutoff (YYYY-MM-DD)
// and reports how many were dropped.  Rows whose date does not compare as an
// ISO date are kept; the purge never destroys data it cannot interpret.
// When nothing qualifies, no overwrite is performed.
func (s *Service) PurgeBefore(ctx context.Context, roomID, cutoff string) (int, error) {
	room, err := s.Room(roomID)
	if err != nil {
		return 0, err
	}
	if _, err := time.Parse(model.DateLayout, cutoff); err != nil {
		return 0, &ValidationError{Field: "cutoff", Reason: "must be YYYY-MM-DD"}
	}
	set, err := s.repo.LoadFresh(ctx, room)
	if err != nil {
		return 0, &StoreError{Op: "read", Err: err}
	}
	kept := make([]model.Reservation, 0, len(set))
	for _, r := range set {
		if _, err := time.Parse(model.DateLayout, r.Date); err == nil && r.Date < cutoff {
			continue
		}
		kept = append(kept, r)
	}
	removed := len(set) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.repo.Replace(ctx, room, kept); err != nil {
		return 0, &StoreError{Op: "overwrite", Err: err}
	}
	return removed, nil
}

func (s *Service) publish(ctx context.Context, action string, room *model.Room, r model.Reservation) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Action:     action,
		RoomID:     room.ID,
		RoomName:   room.Name,
		Researcher: r.Researcher,
		Equipment:  r.Equipment,
		Date:       r.Date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		OccurredAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("booking: publish %s event failed: %v", action, err)
	}
}
