package booking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectiveminds/lab-booking/internal/booking"
	"github.com/collectiveminds/lab-booking/internal/config"
	"github.com/collectiveminds/lab-booking/internal/model"
	"github.com/collectiveminds/lab-booking/internal/queue"
	"github.com/collectiveminds/lab-booking/internal/repository"
)

// capturePublisher records published events instead of talking to a broker.
type capturePublisher struct {
	events []queue.BookingEvent
}

func (p *capturePublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.events = append(p.events, ev)
	return nil
}

// faultyStore wraps a SheetStore and fails selected operations, simulating
// an unreachable backing service.
type faultyStore struct {
	repository.SheetStore
	failRead      bool
	failOverwrite bool
}

func (s *faultyStore) Read(ctx context.Context, worksheet string) (*repository.Table, error) {
	if s.failRead {
		return nil, errors.New("backing service rejected the read")
	}
	return s.SheetStore.Read(ctx, worksheet)
}

func (s *faultyStore) Overwrite(ctx context.Context, worksheet string, t *repository.Table) error {
	if s.failOverwrite {
		return errors.New("backing service rejected the write")
	}
	return s.SheetStore.Overwrite(ctx, worksheet, t)
}

func newTestService(t *testing.T, store repository.SheetStore) (*booking.Service, *capturePublisher) {
	t.Helper()
	rooms, err := config.LoadRooms("")
	require.NoError(t, err)
	repo := repository.NewReservationRepo(store, nil, 0)
	pub := &capturePublisher{}
	return booking.NewService(rooms, repo, pub), pub
}

func proposal() booking.Proposal {
	return booking.Proposal{
		Researcher: "Shane",
		Equipment:  "EEG System A",
		Date:       "2025-03-10",
		StartTime:  "10:00",
	}
}

func TestBookIntoEmptySet(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	resv, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)
	assert.Equal(t, "Shane", resv.Researcher)
	assert.Equal(t, "EEG System A", resv.Equipment)
	assert.Equal(t, "2025-03-10", resv.Date)
	assert.Equal(t, "10:00", resv.StartTime)
	assert.Equal(t, "11:00", resv.EndTime)
	assert.NotEmpty(t, resv.CreatedAt)

	set, err := svc.List(ctx, "427")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, resv, set[0])
}

func TestBookSameEquipmentConflicts(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)

	p := proposal()
	p.Researcher = "Maya"
	_, err = svc.Book(ctx, "427", p)
	var conflict *booking.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "EEG System A", conflict.Equipment)
	assert.Equal(t, "2025-03-10", conflict.Date)
	assert.Equal(t, "10:00", conflict.StartTime)

	set, err := svc.List(ctx, "427")
	require.NoError(t, err)
	assert.Len(t, set, 1)
}

func TestCombinedConflictsWithAnyBooking(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)

	p := proposal()
	p.Researcher = "Maya"
	p.Equipment = "Both Systems (Hyperscanning)"
	_, err = svc.Book(ctx, "427", p)
	var conflict *booking.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Both Systems (Hyperscanning)", conflict.Equipment)
}

func TestCombinedBlocksEverySubResource(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	p := proposal()
	p.Equipment = "Both Systems (Hyperscanning)"
	_, err := svc.Book(ctx, "427", p)
	require.NoError(t, err)

	p = proposal()
	p.Researcher = "Maya"
	p.Equipment = "EEG System B"
	_, err = svc.Book(ctx, "427", p)
	var conflict *booking.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestDifferentEquipmentSharesSlot(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)

	p := proposal()
	p.Researcher = "Maya"
	p.Equipment = "EEG System B"
	_, err = svc.Book(ctx, "427", p)
	require.NoError(t, err)

	set, err := svc.List(ctx, "427")
	require.NoError(t, err)
	assert.Len(t, set, 2)
}

func TestSameEquipmentDifferentSlotAllowed(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)

	p := proposal()
	p.StartTime = "11:00"
	_, err = svc.Book(ctx, "427", p)
	require.NoError(t, err)

	p = proposal()
	p.Date = "2025-03-11"
	_, err = svc.Book(ctx, "427", p)
	require.NoError(t, err)
}

func TestRoomsAreIndependent(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)

	// Same slot, same equipment, different room: no conflict.
	_, err = svc.Book(ctx, "426", proposal())
	require.NoError(t, err)
}

func TestValidationRejectsBadInput(t *testing.T) {
	store := repository.NewMemorySheetStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*booking.Proposal)
		field  string
	}{
		{"empty researcher", func(p *booking.Proposal) { p.Researcher = "   " }, "researcher"},
		{"unknown equipment", func(p *booking.Proposal) { p.Equipment = "fNIRS Frontal A (25330)" }, "equipment"},
		{"malformed date", func(p *booking.Proposal) { p.Date = "10/03/2025" }, "date"},
		{"partial hour", func(p *booking.Proposal) { p.StartTime = "10:30" }, "start_time"},
		{"before opening", func(p *booking.Proposal) { p.StartTime = "07:00" }, "start_time"},
		{"after last slot", func(p *booking.Proposal) { p.StartTime = "20:00" }, "start_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := proposal()
			tc.mutate(&p)
			_, err := svc.Book(ctx, "427", p)
			var verr *booking.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	// None of the rejected proposals may have touched the store.
	table, err := store.Read(ctx, "EEG_427")
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestUnknownRoom(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "428", proposal())
	assert.ErrorIs(t, err, booking.ErrUnknownRoom)

	_, err = svc.List(ctx, "basement")
	assert.ErrorIs(t, err, booking.ErrUnknownRoom)
}

func TestFailedCommitLeavesStoreUnchanged(t *testing.T) {
	mem := repository.NewMemorySheetStore()
	svc, _ := newTestService(t, mem)
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)
	before, err := mem.Read(ctx, "EEG_427")
	require.NoError(t, err)

	// Conflicting proposal: rejected with no write.
	p := proposal()
	p.Researcher = "Maya"
	_, err = svc.Book(ctx, "427", p)
	var conflict *booking.ConflictError
	require.ErrorAs(t, err, &conflict)

	// Overwrite failure: the booking fails and the collection is untouched.
	faulty := &faultyStore{SheetStore: mem, failOverwrite: true}
	svc2, _ := newTestService(t, faulty)
	p = proposal()
	p.StartTime = "14:00"
	_, err = svc2.Book(ctx, "427", p)
	var storeErr *booking.StoreError
	require.ErrorAs(t, err, &storeErr)

	after, err := mem.Read(ctx, "EEG_427")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStoreReadFailure(t *testing.T) {
	faulty := &faultyStore{SheetStore: repository.NewMemorySheetStore(), failRead: true}
	svc, _ := newTestService(t, faulty)
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	var storeErr *booking.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)

	_, err = svc.List(ctx, "427")
	require.ErrorAs(t, err, &storeErr)
}

func TestCancelRemovesExactlyOne(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	slots := []string{"09:00", "10:00", "11:00"}
	for _, s := range slots {
		p := proposal()
		p.StartTime = s
		_, err := svc.Book(ctx, "427", p)
		require.NoError(t, err)
	}
	before, err := svc.List(ctx, "427")
	require.NoError(t, err)
	require.Len(t, before, 3)

	err = svc.Cancel(ctx, "427", model.ReservationRef{
		Researcher: "Shane",
		Equipment:  "EEG System A",
		Date:       "2025-03-10",
		StartTime:  "10:00",
	})
	require.NoError(t, err)

	after, err := svc.List(ctx, "427")
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0]) // 09:00 untouched, fields intact
	assert.Equal(t, before[2], after[1]) // 11:00 untouched, fields intact
}

func TestCancelVanishedTarget(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)

	ref := model.ReservationRef{
		Researcher: "Shane",
		Equipment:  "EEG System A",
		Date:       "2025-03-10",
		StartTime:  "10:00",
	}
	require.NoError(t, svc.Cancel(ctx, "427", ref))

	// A second session cancelling the same reservation must not silently succeed.
	err = svc.Cancel(ctx, "427", ref)
	var notFound *booking.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ref, notFound.Ref)
}

func TestBookAndCancelPublishEvents(t *testing.T) {
	svc, pub := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	_, err := svc.Book(ctx, "427", proposal())
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, "427", model.ReservationRef{
		Researcher: "Shane",
		Equipment:  "EEG System A",
		Date:       "2025-03-10",
		StartTime:  "10:00",
	}))

	require.Len(t, pub.events, 2)
	assert.Equal(t, queue.ActionConfirmed, pub.events[0].Action)
	assert.Equal(t, queue.ActionCancelled, pub.events[1].Action)
	assert.Equal(t, "427", pub.events[0].RoomID)
	assert.Equal(t, "EEG Spatial", pub.events[0].RoomName)
	assert.Equal(t, "11:00", pub.events[0].EndTime)
}

func TestPurgeBefore(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemorySheetStore())
	ctx := context.Background()

	old := proposal()
	old.Date = "2024-01-05"
	_, err := svc.Book(ctx, "427", old)
	require.NoError(t, err)
	recent := proposal()
	recent.Date = "2025-06-01"
	_, err = svc.Book(ctx, "427", recent)
	require.NoError(t, err)

	n, err := svc.PurgeBefore(ctx, "427", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	set, err := svc.List(ctx, "427")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "2025-06-01", set[0].Date)

	// Nothing left to purge: a second run removes zero rows.
	n, err = svc.PurgeBefore(ctx, "427", "2025-01-01")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHasConflictIsPure(t *testing.T) {
	rooms, err := config.LoadRooms("")
	require.NoError(t, err)
	room := rooms.Room("427")
	require.NotNil(t, room)

	systemA, ok := room.Option("EEG System A")
	require.True(t, ok)
	both, ok := room.Option("Both Systems (Hyperscanning)")
	require.True(t, ok)

	set := []model.Reservation{
		{Researcher: "Shane", Equipment: "EEG System A", Date: "2025-03-10", StartTime: "10:00", EndTime: "11:00"},
	}

	assert.True(t, booking.HasConflict(room, set, "2025-03-10", "10:00", systemA))
	assert.True(t, booking.HasConflict(room, set, "2025-03-10", "10:00", both))
	assert.False(t, booking.HasConflict(room, set, "2025-03-10", "11:00", systemA))
	assert.False(t, booking.HasConflict(room, set, "2025-03-11", "10:00", systemA))
	assert.False(t, booking.HasConflict(room, nil, "2025-03-10", "10:00", both))

	// A stored label outside the option list is not combined, so only exact
	// label equality or a combined proposal collides with it.
	drifted := []model.Reservation{
		{Equipment: "EEG System A (old label)", Date: "2025-03-10", StartTime: "10:00"},
	}
	assert.False(t, booking.HasConflict(room, drifted, "2025-03-10", "10:00", systemA))
	assert.True(t, booking.HasConflict(room, drifted, "2025-03-10", "10:00", both))

	// Deterministic: same inputs, same answer.
	for i := 0; i < 3; i++ {
		assert.True(t, booking.HasConflict(room, set, "2025-03-10", "10:00", systemA))
	}
}
